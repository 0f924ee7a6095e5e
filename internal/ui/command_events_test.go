package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gmgdev/gmg/internal/execshell"
	"github.com/gmgdev/gmg/internal/ui"
)

func TestCommandEventFormatterMessages(testInstance *testing.T) {
	formatter := ui.CommandEventFormatter{}
	command := execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"fsck"}, WorkingDirectory: "/git/project.git"},
	}

	require.Equal(testInstance, "Running git fsck (in /git/project.git)", formatter.BuildStartedMessage(command))
	require.Equal(
		testInstance,
		"git fsck (in /git/project.git) failed with exit code 2: bad object",
		formatter.BuildFailureMessage(command, execshell.ExecutionResult{ExitCode: 2, StandardError: "bad object"}),
	)
	require.Equal(
		testInstance,
		"git fsck (in /git/project.git) failed: executable missing",
		formatter.BuildExecutionFailureMessage(command, errors.New("executable missing")),
	)
}

func TestConsoleCommandEventLoggerLevels(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.DebugLevel)
	eventLogger := ui.NewConsoleCommandEventLogger(zap.New(observerCore))
	command := execshell.ShellCommand{Name: execshell.CommandGroupAdd, Details: execshell.CommandDetails{Arguments: []string{"g_project"}}}

	eventLogger.CommandStarted(command)
	eventLogger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 0})
	eventLogger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 9})
	eventLogger.CommandExecutionFailed(command, errors.New("missing"))

	logEntries := observedLogs.All()
	require.Len(testInstance, logEntries, 3)
	require.Equal(testInstance, zap.DebugLevel, logEntries[0].Level)
	require.Equal(testInstance, zap.WarnLevel, logEntries[1].Level)
	require.Equal(testInstance, zap.ErrorLevel, logEntries[2].Level)
}
