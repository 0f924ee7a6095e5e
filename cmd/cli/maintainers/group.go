// Package maintainers assembles the maintainer command group, sugar over the
// repository metadata store's per-user maintainer flags.
package maintainers

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/repository"
	"github.com/gmgdev/gmg/internal/setup"
)

const (
	groupUseConstant              = "maintainer"
	groupShortDescriptionConstant = "Manage repository maintainer flags"

	setUseConstant                = "set <login> <repository>"
	setShortDescriptionConstant   = "Flag a user as maintainer of a repository"
	unsetUseConstant              = "unset <login> <repository>"
	unsetShortDescriptionConstant = "Remove a user's maintainer flag"
)

// LoggerProvider supplies the structured logger configured by the root command.
type LoggerProvider func() *zap.Logger

// ServicesProvider supplies the wired hosting service graph.
type ServicesProvider func() (*setup.Services, error)

// CommandBuilder assembles the maintainer command group.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ServicesProvider ServicesProvider
}

// Build constructs the maintainer group and its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	groupCommand := &cobra.Command{
		Use:           groupUseConstant,
		Short:         groupShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	groupCommand.AddCommand(builder.buildSetCommand(), builder.buildUnsetCommand())
	return groupCommand, nil
}

func (builder *CommandBuilder) runMaintainerMutation(command *cobra.Command, arguments []string, set bool) error {
	services, servicesError := builder.ServicesProvider()
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
	if set {
		return services.Access.SetMaintainer(command.Context(), subject, parsedRepository)
	}
	return services.Access.UnsetMaintainer(command.Context(), subject, parsedRepository)
}

func (builder *CommandBuilder) buildSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   setUseConstant,
		Short: setShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runMaintainerMutation(command, arguments, true)
		},
	}
}

func (builder *CommandBuilder) buildUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   unsetUseConstant,
		Short: unsetShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runMaintainerMutation(command, arguments, false)
		},
	}
}
