// Package repos assembles the repo command group: repository lifecycle,
// metadata, branch protection, and build trigger subcommands.
package repos

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmgdev/gmg/internal/repository"
	"github.com/gmgdev/gmg/internal/setup"
)

const (
	groupUseConstant              = "repo"
	groupShortDescriptionConstant = "Manage hosted repositories"

	createUseConstant                = "create <name>"
	createShortDescriptionConstant   = "Create a repository"
	destroyUseConstant               = "destroy <name>"
	destroyShortDescriptionConstant  = "Destroy a repository and revoke all access"
	renameUseConstant                = "rename <name> <new-name>"
	renameShortDescriptionConstant   = "Rename a repository preserving content and access"
	fixUseConstant                   = "fix <name>"
	fixShortDescriptionConstant      = "Normalize repository permissions and run maintenance"
	cleanupUseConstant               = "cleanup <name>"
	cleanupShortDescriptionConstant  = "Expire reflogs and collect garbage"
	checkUseConstant                 = "check <name>"
	checkShortDescriptionConstant    = "Run an advisory integrity check"
	archiveUseConstant               = "archive <name>"
	archiveShortDescriptionConstant  = "Archive a repository, revoking access in bulk"
	branchesUseConstant              = "branches <name>"
	branchesShortDescriptionConstant = "List repository branches"
	usersUseConstant                 = "users <name>"
	usersShortDescriptionConstant    = "List users with access"
	infoUseConstant                  = "info <name>"
	infoShortDescriptionConstant     = "Show repository details"
	listUseConstant                  = "list"
	listShortDescriptionConstant     = "List all repositories"
	setUseConstant                   = "set <name> description <value>"
	setShortDescriptionConstant      = "Set a repository property"
	protectUseConstant               = "protect <name> <branch>"
	protectShortDescriptionConstant  = "Flag a branch as protected"
	unprotectUseConstant             = "unprotect <name> <branch>"
	unprotectShortDescription        = "Remove a branch protection flag"
	rciUseConstant                   = "rci"
	rciShortDescriptionConstant      = "Manage branch build triggers"
	rciSetUseConstant                = "set <name> <branch> <server-url> <job> <secret>"
	rciSetShortDescriptionConstant   = "Register a build trigger for a branch"
	rciUnsetUseConstant              = "unset <name> <branch>"
	rciUnsetShortDescriptionConstant = "Remove a branch build trigger"

	initOnlyFlagNameConstant         = "init-only"
	initOnlyFlagDescriptionConstant  = "Skip the initial commit, description, and branch protection"
	descriptionFlagNameConstant      = "description"
	descriptionFlagShorthandConstant = "D"
	descriptionFlagUsageConstant     = "Repository description"
	shortFlagNameConstant            = "short"
	shortFlagShorthandConstant       = "s"
	shortFlagDescriptionConstant     = "Print names only"

	descriptionPropertyNameConstant     = "description"
	unsupportedPropertyTemplateConstant = "unsupported repository property: %s"
	branchProtectedTemplateConstant     = "Repository %s branch %s has been protected\n"
	branchUnprotectedTemplateConstant   = "Repository %s branch %s has been unprotected\n"
	triggerConfiguredTemplateConstant   = "RCI config SET for %s branch %s, trigger URL: %s\n"
	triggerRemovedTemplateConstant      = "RCI config UNSET for %s branch %s\n"
	listEntryTemplateConstant           = "%s\n"
)

// LoggerProvider supplies the structured logger configured by the root command.
type LoggerProvider func() *zap.Logger

// ServicesProvider supplies the wired hosting service graph.
type ServicesProvider func() (*setup.Services, error)

// CommandBuilder assembles the repo command group.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ServicesProvider ServicesProvider
}

// Build constructs the repo group and its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	groupCommand := &cobra.Command{
		Use:           groupUseConstant,
		Short:         groupShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	groupCommand.AddCommand(
		builder.buildCreateCommand(),
		builder.buildDestroyCommand(),
		builder.buildRenameCommand(),
		builder.buildFixCommand(),
		builder.buildCleanupCommand(),
		builder.buildCheckCommand(),
		builder.buildArchiveCommand(),
		builder.buildBranchesCommand(),
		builder.buildUsersCommand(),
		builder.buildInfoCommand(),
		builder.buildListCommand(),
		builder.buildSetCommand(),
		builder.buildProtectCommand(),
		builder.buildUnprotectCommand(),
		builder.buildTriggerCommand(),
	)

	return groupCommand, nil
}

func (builder *CommandBuilder) services() (*setup.Services, error) {
	return builder.ServicesProvider()
}

func parseRepositoryArgument(argument string) (repository.Repository, error) {
	return repository.ParseName(argument)
}

func (builder *CommandBuilder) buildCreateCommand() *cobra.Command {
	var initOnly bool
	var description string
	command := &cobra.Command{
		Use:   createUseConstant,
		Short: createShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Repositories.Create(command.Context(), parsedRepository, repository.CreateOptions{InitOnly: initOnly, Description: description})
		},
	}
	command.Flags().BoolVar(&initOnly, initOnlyFlagNameConstant, false, initOnlyFlagDescriptionConstant)
	command.Flags().StringVarP(&description, descriptionFlagNameConstant, descriptionFlagShorthandConstant, "", descriptionFlagUsageConstant)
	return command
}

func (builder *CommandBuilder) buildDestroyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   destroyUseConstant,
		Short: destroyShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Access.DestroyRepository(command.Context(), parsedRepository)
		},
	}
}

func (builder *CommandBuilder) buildRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   renameUseConstant,
		Short: renameShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			sourceRepository, sourceError := parseRepositoryArgument(arguments[0])
			if sourceError != nil {
				return sourceError
			}
			targetRepository, targetError := parseRepositoryArgument(arguments[1])
			if targetError != nil {
				return targetError
			}
			return services.Access.RenameRepository(command.Context(), sourceRepository, targetRepository)
		},
	}
}

func (builder *CommandBuilder) buildFixCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fixUseConstant,
		Short: fixShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Repositories.Fix(command.Context(), parsedRepository, true)
		},
	}
}

func (builder *CommandBuilder) buildCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   cleanupUseConstant,
		Short: cleanupShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Repositories.Cleanup(command.Context(), parsedRepository)
		},
	}
}

func (builder *CommandBuilder) buildCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   checkUseConstant,
		Short: checkShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Repositories.Check(command.Context(), parsedRepository)
		},
	}
}

func (builder *CommandBuilder) buildArchiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   archiveUseConstant,
		Short: archiveShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Repositories.Archive(command.Context(), parsedRepository)
		},
	}
}

func (builder *CommandBuilder) buildBranchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   branchesUseConstant,
		Short: branchesShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			branchNames, branchesError := services.Repositories.Branches(command.Context(), parsedRepository)
			if branchesError != nil {
				return branchesError
			}
			for _, branchName := range branchNames {
				fmt.Fprintf(command.OutOrStdout(), listEntryTemplateConstant, branchName)
			}
			return nil
		},
	}
}

func (builder *CommandBuilder) buildUsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   usersUseConstant,
		Short: usersShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			userLogins, usersError := services.Repositories.UserLogins(command.Context(), parsedRepository)
			if usersError != nil {
				return usersError
			}
			for _, userLogin := range userLogins {
				fmt.Fprintf(command.OutOrStdout(), listEntryTemplateConstant, userLogin)
			}
			return nil
		},
	}
}

func (builder *CommandBuilder) buildInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   infoUseConstant,
		Short: infoShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Repositories.Info(command.Context(), parsedRepository)
		},
	}
}

func (builder *CommandBuilder) buildListCommand() *cobra.Command {
	var short bool
	command := &cobra.Command{
		Use:   listUseConstant,
		Short: listShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			return services.Repositories.List(short)
		},
	}
	command.Flags().BoolVarP(&short, shortFlagNameConstant, shortFlagShorthandConstant, false, shortFlagDescriptionConstant)
	return command
}

func (builder *CommandBuilder) buildSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   setUseConstant,
		Short: setShortDescriptionConstant,
		Args:  cobra.ExactArgs(3),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			if arguments[1] != descriptionPropertyNameConstant {
				return fmt.Errorf(unsupportedPropertyTemplateConstant, arguments[1])
			}
			return services.Access.SetDescription(command.Context(), parsedRepository, arguments[2])
		},
	}
}

func (builder *CommandBuilder) buildProtectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   protectUseConstant,
		Short: protectShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			if protectError := services.Repositories.Protect(command.Context(), parsedRepository, arguments[1]); protectError != nil {
				return protectError
			}
			fmt.Fprintf(command.OutOrStdout(), branchProtectedTemplateConstant, parsedRepository.Name(), arguments[1])
			return nil
		},
	}
}

func (builder *CommandBuilder) buildUnprotectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   unprotectUseConstant,
		Short: unprotectShortDescription,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			if unprotectError := services.Repositories.Unprotect(command.Context(), parsedRepository, arguments[1]); unprotectError != nil {
				return unprotectError
			}
			fmt.Fprintf(command.OutOrStdout(), branchUnprotectedTemplateConstant, parsedRepository.Name(), arguments[1])
			return nil
		},
	}
}

func (builder *CommandBuilder) buildTriggerCommand() *cobra.Command {
	triggerCommand := &cobra.Command{
		Use:   rciUseConstant,
		Short: rciShortDescriptionConstant,
	}

	triggerCommand.AddCommand(&cobra.Command{
		Use:   rciSetUseConstant,
		Short: rciSetShortDescriptionConstant,
		Args:  cobra.ExactArgs(5),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			triggerURL, triggerError := services.Repositories.SetTrigger(command.Context(), parsedRepository, arguments[1], arguments[2], arguments[3], arguments[4])
			if triggerError != nil {
				return triggerError
			}
			fmt.Fprintf(command.OutOrStdout(), triggerConfiguredTemplateConstant, parsedRepository.Name(), arguments[1], triggerURL)
			return nil
		},
	})

	triggerCommand.AddCommand(&cobra.Command{
		Use:   rciUnsetUseConstant,
		Short: rciUnsetShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			parsedRepository, parseError := parseRepositoryArgument(arguments[0])
			if parseError != nil {
				return parseError
			}
			if triggerError := services.Repositories.UnsetTrigger(command.Context(), parsedRepository, arguments[1]); triggerError != nil {
				return triggerError
			}
			fmt.Fprintf(command.OutOrStdout(), triggerRemovedTemplateConstant, parsedRepository.Name(), arguments[1])
			return nil
		},
	})

	return triggerCommand
}
