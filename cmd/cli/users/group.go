// Package users assembles the user command group: account lifecycle, access
// grants, and catalog maintenance subcommands.
package users

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/repository"
	"github.com/gmgdev/gmg/internal/setup"
)

const (
	groupUseConstant              = "user"
	groupShortDescriptionConstant = "Manage hosted user accounts"

	createUseConstant               = "create <login> <name> <key-file>"
	createShortDescriptionConstant  = "Create a user account; pass - as key-file to read the key from stdin"
	destroyUseConstant              = "destroy <login>"
	destroyShortDescriptionConstant = "Delete a user account, keeping the home directory"
	grantUseConstant                = "grant <login> <repository>"
	grantShortDescriptionConstant   = "Grant a user access to a repository"
	revokeUseConstant               = "revoke <login> <repository>"
	revokeShortDescriptionConstant  = "Revoke a user's access to a repository"
	listUseConstant                 = "list"
	listShortDescriptionConstant    = "List hosted user accounts"
	reposUseConstant                = "repos <login>"
	reposShortDescriptionConstant   = "List repositories a user can access"
	updateUseConstant               = "update <login>"
	updateShortDescriptionConstant  = "Regenerate the user's catalog file"

	shortFlagNameConstant        = "short"
	shortFlagShorthandConstant   = "s"
	shortFlagDescriptionConstant = "Print names only"

	listEntryTemplateConstant        = "%s\n"
	listEntryWithDescriptionConstant = "%s (%s)\n"
)

// LoggerProvider supplies the structured logger configured by the root command.
type LoggerProvider func() *zap.Logger

// ServicesProvider supplies the wired hosting service graph.
type ServicesProvider func() (*setup.Services, error)

// CommandBuilder assembles the user command group.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ServicesProvider ServicesProvider
}

// Build constructs the user group and its subcommands.
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
		builder.buildGrantCommand(),
		builder.buildRevokeCommand(),
		builder.buildListCommand(),
		builder.buildReposCommand(),
		builder.buildUpdateCommand(),
	)

	return groupCommand, nil
}

func (builder *CommandBuilder) services() (*setup.Services, error) {
	return builder.ServicesProvider()
}

func (builder *CommandBuilder) buildCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   createUseConstant,
		Short: createShortDescriptionConstant,
		Args:  cobra.ExactArgs(3),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			subject, parseError := account.ParseLogin(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Accounts.Create(command.Context(), subject, arguments[1], arguments[2])
		},
	}
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
			subject, parseError := account.ParseLogin(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Accounts.Remove(command.Context(), subject)
		},
	}
}

func (builder *CommandBuilder) buildGrantCommand() *cobra.Command {
	return &cobra.Command{
		Use:   grantUseConstant,
		Short: grantShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			subject, loginError := account.ParseLogin(arguments[0])
			if loginError != nil {
				return loginError
			}
			parsedRepository, repositoryError := repository.ParseName(arguments[1])
			if repositoryError != nil {
				return repositoryError
			}
			return services.Accounts.Grant(command.Context(), subject, parsedRepository)
		},
	}
}

func (builder *CommandBuilder) buildRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   revokeUseConstant,
		Short: revokeShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			subject, loginError := account.ParseLogin(arguments[0])
			if loginError != nil {
				return loginError
			}
			parsedRepository, repositoryError := repository.ParseName(arguments[1])
			if repositoryError != nil {
				return repositoryError
			}
			return services.Accounts.Revoke(command.Context(), subject, parsedRepository)
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
			return services.Accounts.List(command.Context(), short)
		},
	}
	command.Flags().BoolVarP(&short, shortFlagNameConstant, shortFlagShorthandConstant, false, shortFlagDescriptionConstant)
	return command
}

func (builder *CommandBuilder) buildReposCommand() *cobra.Command {
	var short bool
	command := &cobra.Command{
		Use:   reposUseConstant,
		Short: reposShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			subject, parseError := account.ParseLogin(arguments[0])
			if parseError != nil {
				return parseError
			}
			accessibleRepositories, repositoriesError := services.Accounts.Repositories(command.Context(), subject)
			if repositoriesError != nil {
				return repositoriesError
			}
			for _, accessibleRepository := range accessibleRepositories {
				if short {
					fmt.Fprintf(command.OutOrStdout(), listEntryTemplateConstant, accessibleRepository.Name())
					continue
				}
				descriptionText, _, descriptionError := services.Repositories.Description(accessibleRepository)
				if descriptionError != nil {
					return descriptionError
				}
				fmt.Fprintf(command.OutOrStdout(), listEntryWithDescriptionConstant, accessibleRepository.Name(), descriptionText)
			}
			return nil
		},
	}
	command.Flags().BoolVarP(&short, shortFlagNameConstant, shortFlagShorthandConstant, false, shortFlagDescriptionConstant)
	return command
}

func (builder *CommandBuilder) buildUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   updateUseConstant,
		Short: updateShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			services, servicesError := builder.services()
			if servicesError != nil {
				return servicesError
			}
			subject, parseError := account.ParseLogin(arguments[0])
			if parseError != nil {
				return parseError
			}
			return services.Accounts.RefreshCatalog(command.Context(), subject)
		},
	}
}
