// Package workflow exposes the workflow command, executing a YAML-defined
// sequence of hosting operations in one invocation.
package workflow

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmgdev/gmg/internal/setup"
	"github.com/gmgdev/gmg/internal/workflow"
)

const (
	commandUseConstant              = "workflow <file>"
	commandShortDescriptionConstant = "Run a workflow configuration file"
	commandLongDescriptionConstant  = "workflow executes hosting operations defined in a YAML configuration file in order, stopping at the first failure."

	dryRunFlagNameConstant        = "dry-run"
	dryRunFlagDescriptionConstant = "Preview workflow operations without making changes"

	loadConfigurationErrorTemplateConstant = "unable to load workflow configuration: %w"
	buildOperationsErrorTemplateConstant   = "unable to build workflow operations: %w"
)

// LoggerProvider supplies the structured logger configured by the root command.
type LoggerProvider func() *zap.Logger

// ServicesProvider supplies the wired hosting service graph.
type ServicesProvider func() (*setup.Services, error)

// CommandBuilder assembles the workflow command.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ServicesProvider ServicesProvider
}

// Build constructs the workflow command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	var dryRun bool
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments[0], dryRun)
		},
	}
	command.Flags().BoolVar(&dryRun, dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, configurationPath string, dryRun bool) error {
	workflowConfiguration, configurationError := workflow.LoadConfiguration(configurationPath)
	if configurationError != nil {
		return fmt.Errorf(loadConfigurationErrorTemplateConstant, configurationError)
	}
	operations, operationsError := workflow.BuildOperations(workflowConfiguration)
	if operationsError != nil {
		return fmt.Errorf(buildOperationsErrorTemplateConstant, operationsError)
	}

	services, servicesError := builder.ServicesProvider()
	if servicesError != nil {
		return servicesError
	}

	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}

	executor := workflow.NewExecutor(operations, workflow.Dependencies{
		Repositories: services.Repositories,
		Accounts:     services.Accounts,
		Sagas:        services.Access,
		Logger:       logger,
		Output:       command.OutOrStdout(),
		Errors:       command.ErrOrStderr(),
	})

	return executor.Execute(command.Context(), workflow.RuntimeOptions{DryRun: dryRun})
}
