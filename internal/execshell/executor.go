package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor requires a logger"
	commandRunnerNotConfiguredMessageConstant = "shell executor requires a command runner"
	commandFailedTemplateConstant             = "%s exited with code %d%s"
	commandExecutionFailedTemplateConstant    = "%s could not be executed: %s"
	commandOutputSuffixTemplateConstant       = ": %s"
	commandStartedLogMessageConstant          = "external command started"
	commandCompletedLogMessageConstant        = "external command completed"
	commandLabelJoinSeparatorConstant         = " "
	logFieldCommandConstant                   = "command"
	logFieldExitCodeConstant                  = "exit_code"
)

// CommandName identifies an external executable the engine is allowed to spawn.
type CommandName string

// Supported external commands.
const (
	CommandGit      CommandName = "git"
	CommandGroupAdd CommandName = "groupadd"
	CommandGroupDel CommandName = "groupdel"
	CommandUserAdd  CommandName = "useradd"
	CommandUserDel  CommandName = "userdel"
	CommandGpasswd  CommandName = "gpasswd"
	CommandChfn     CommandName = "chfn"
	CommandChown    CommandName = "chown"
	CommandGetent   CommandName = "getent"
	CommandID       CommandName = "id"
)

// CommandDetails carries the invocation arguments for a shell command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs a command name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// String renders the command the way an operator would type it.
func (command ShellCommand) String() string {
	commandParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(commandParts, commandLabelJoinSeparatorConstant)
}

// ExecutionResult captures the observable outcome of running a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner abstracts process execution for testing.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Construction sentinels.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failure including captured diagnostics.
func (failure CommandFailedError) Error() string {
	diagnostic := strings.TrimSpace(failure.Result.StandardError)
	if len(diagnostic) == 0 {
		diagnostic = strings.TrimSpace(failure.Result.StandardOutput)
	}
	suffix := ""
	if len(diagnostic) > 0 {
		suffix = fmt.Sprintf(commandOutputSuffixTemplateConstant, diagnostic)
	}
	return fmt.Sprintf(commandFailedTemplateConstant, failure.Command.String(), failure.Result.ExitCode, suffix)
}

// CommandExecutionError reports a command that could not be started at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, failure.Command.String(), failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs shell commands through a CommandRunner while emitting
// lifecycle logs and observer notifications.
type ShellExecutor struct {
	logger   *zap.Logger
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor; a nil observer is replaced with a no-op.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, observer CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if observer == nil {
		observer = discardingCommandEventObserver{}
	}
	return &ShellExecutor{logger: logger, runner: runner, observer: observer}, nil
}

// Execute runs the command and converts a non-zero exit code into a CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executionResult, executionError := executor.run(executionContext, command)
	if executionError != nil {
		return ExecutionResult{}, executionError
	}
	if executionResult.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}
	return executionResult, nil
}

// ExecuteTolerant runs the command and reports a non-zero exit code through the
// result instead of an error. Callers use it for operations that must stay
// retry-safe, such as revoking an already-revoked group membership.
func (executor *ShellExecutor) ExecuteTolerant(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	return executor.run(executionContext, command)
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

func (executor *ShellExecutor) run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Debug(commandStartedLogMessageConstant, zap.String(logFieldCommandConstant, command.String()))
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.logger.Debug(
		commandCompletedLogMessageConstant,
		zap.String(logFieldCommandConstant, command.String()),
		zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
	)
	executor.observer.CommandCompleted(command, executionResult)
	return executionResult, nil
}
