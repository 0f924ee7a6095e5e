package execshell

// CommandEventObserver is notified at each stage of a shell command's life:
// before the process starts, after it exits with a result, and when the
// process could not be run at all.
type CommandEventObserver interface {
	// CommandStarted fires immediately before the process is launched.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the process exited and a result is available.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when launching or waiting on the process
	// failed before any result could be captured.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// discardingCommandEventObserver ignores every notification. The executor
// substitutes it when no observer was supplied.
type discardingCommandEventObserver struct{}

func (discardingCommandEventObserver) CommandStarted(ShellCommand) {}

func (discardingCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (discardingCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
