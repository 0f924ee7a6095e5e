package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const (
	workflowExecutionErrorTemplateConstant = "workflow operation %s failed: %w"
	workflowExecutorDependenciesMessage    = "workflow executor requires repository, account, and saga dependencies"

	stepStartedMessageConstant = "workflow step started"
	stepFieldNameConstant      = "operation"
)

// Dependencies configures shared collaborators for workflow execution.
type Dependencies struct {
	Repositories RepositoryOperations
	Accounts     AccountOperations
	Sagas        SagaOperations
	Logger       *zap.Logger
	Output       io.Writer
	Errors       io.Writer
}

// RuntimeOptions captures user-provided execution modifiers.
type RuntimeOptions struct {
	DryRun bool
}

// Executor coordinates workflow operation execution.
type Executor struct {
	operations   []Operation
	dependencies Dependencies
}

// NewExecutor constructs an Executor instance.
func NewExecutor(operations []Operation, dependencies Dependencies) *Executor {
	return &Executor{operations: append([]Operation{}, operations...), dependencies: dependencies}
}

// Execute runs the configured operations in order, stopping at the first
// failure. Failure of a step never unwinds earlier steps; each operation
// carries its own compensation where one applies.
func (executor *Executor) Execute(executionContext context.Context, runtimeOptions RuntimeOptions) error {
	if executor.dependencies.Repositories == nil || executor.dependencies.Accounts == nil || executor.dependencies.Sagas == nil {
		return errors.New(workflowExecutorDependenciesMessage)
	}

	environment := &Environment{
		Repositories: executor.dependencies.Repositories,
		Accounts:     executor.dependencies.Accounts,
		Sagas:        executor.dependencies.Sagas,
		Logger:       executor.dependencies.Logger,
		Output:       executor.dependencies.Output,
		Errors:       executor.dependencies.Errors,
		DryRun:       runtimeOptions.DryRun,
	}
	if environment.Logger == nil {
		environment.Logger = zap.NewNop()
	}
	if environment.Output == nil {
		environment.Output = io.Discard
	}
	if environment.Errors == nil {
		environment.Errors = io.Discard
	}

	for operationIndex := range executor.operations {
		operation := executor.operations[operationIndex]
		if operation == nil {
			continue
		}
		environment.Logger.Debug(stepStartedMessageConstant, zap.String(stepFieldNameConstant, operation.Name()))
		if executeError := operation.Execute(executionContext, environment); executeError != nil {
			return fmt.Errorf(workflowExecutionErrorTemplateConstant, operation.Name(), executeError)
		}
	}
	return nil
}
