// Package gitcmd wraps the git executable invocations used by the hosting
// engine: bare repository initialization, the initial-commit plumbing, branch
// listing, metadata-store access through git config, and maintenance passes.
package gitcmd

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/gmgdev/gmg/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant = "git service requires a shell executor"

	initSubcommandConstant       = "init"
	cloneSubcommandConstant      = "clone"
	addSubcommandConstant        = "add"
	commitSubcommandConstant     = "commit"
	pushSubcommandConstant       = "push"
	branchSubcommandConstant     = "branch"
	configSubcommandConstant     = "config"
	fsckSubcommandConstant       = "fsck"
	reflogSubcommandConstant     = "reflog"
	gcSubcommandConstant         = "gc"
	quietFlagConstant            = "--quiet"
	bareFlagConstant             = "--bare"
	sharedGroupFlagConstant      = "--shared=group"
	initialBranchFlagConstant    = "-b"
	commitAllFlagConstant        = "-a"
	messageFlagConstant          = "-m"
	configFileFlagConstant       = "-f"
	configUnsetFlagConstant      = "--unset"
	configListFlagConstant       = "--list"
	reflogExpireArgumentConstant = "expire"
	reflogExpireNowFlagConstant  = "--expire=now"
	reflogAllFlagConstant        = "--all"
	gcPruneNowFlagConstant       = "--prune=now"
	currentBranchMarkerConstant  = "*"
	configEntrySeparatorConstant = "="
)

// GitExecutor is the subset of execshell.ShellExecutor required by the service.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ErrExecutorNotConfigured indicates the service was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// Service exposes the git operations consumed by repository lifecycle code.
type Service struct {
	executor GitExecutor
}

// NewService constructs a git service around the provided executor.
func NewService(executor GitExecutor) (*Service, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Service{executor: executor}, nil
}

// InitBareShared initializes an empty bare group-shared repository with the
// given default branch at repositoryPath.
func (service *Service) InitBareShared(executionContext context.Context, repositoryPath string, defaultBranch string) error {
	arguments := []string{initSubcommandConstant, quietFlagConstant, initialBranchFlagConstant, defaultBranch, bareFlagConstant, sharedGroupFlagConstant, repositoryPath}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments})
	return executionError
}

// CloneQuiet clones sourcePath into directoryName beneath workingDirectory.
func (service *Service) CloneQuiet(executionContext context.Context, sourcePath string, workingDirectory string, directoryName string) error {
	arguments := []string{cloneSubcommandConstant, quietFlagConstant, sourcePath, directoryName}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: workingDirectory})
	return executionError
}

// StageFile stages a single file inside worktreePath.
func (service *Service) StageFile(executionContext context.Context, worktreePath string, fileName string) error {
	arguments := []string{addSubcommandConstant, fileName}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: worktreePath})
	return executionError
}

// Commit records every staged change inside worktreePath.
func (service *Service) Commit(executionContext context.Context, worktreePath string, message string) error {
	arguments := []string{commitSubcommandConstant, quietFlagConstant, commitAllFlagConstant, messageFlagConstant, message}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: worktreePath})
	return executionError
}

// Push publishes branchName to remoteName from worktreePath.
func (service *Service) Push(executionContext context.Context, worktreePath string, remoteName string, branchName string) error {
	arguments := []string{pushSubcommandConstant, quietFlagConstant, remoteName, branchName}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: worktreePath})
	return executionError
}

// Branches lists local branch names sorted lexicographically, with the
// current-branch marker trimmed.
func (service *Service) Branches(executionContext context.Context, repositoryPath string) ([]string, error) {
	arguments := []string{branchSubcommandConstant}
	executionResult, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath})
	if executionError != nil {
		return nil, executionError
	}

	var branchNames []string
	for _, outputLine := range strings.Split(executionResult.StandardOutput, "\n") {
		branchName := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(outputLine), currentBranchMarkerConstant))
		if len(branchName) > 0 {
			branchNames = append(branchNames, branchName)
		}
	}
	sort.Strings(branchNames)
	return branchNames, nil
}

// ConfigSet writes a key into the configuration file at configPath.
func (service *Service) ConfigSet(executionContext context.Context, configPath string, key string, value string) error {
	arguments := []string{configSubcommandConstant, configFileFlagConstant, configPath, key, value}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments})
	return executionError
}

// ConfigUnset removes a key from the configuration file at configPath.
func (service *Service) ConfigUnset(executionContext context.Context, configPath string, key string) error {
	arguments := []string{configSubcommandConstant, configFileFlagConstant, configPath, configUnsetFlagConstant, key}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments})
	return executionError
}

// ConfigList returns every key/value pair stored in the configuration file at configPath.
func (service *Service) ConfigList(executionContext context.Context, configPath string) (map[string]string, error) {
	arguments := []string{configSubcommandConstant, configFileFlagConstant, configPath, configListFlagConstant}
	executionResult, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments})
	if executionError != nil {
		return nil, executionError
	}

	configurationEntries := make(map[string]string)
	for _, outputLine := range strings.Split(executionResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) == 0 {
			continue
		}
		entryKey, entryValue, separatorFound := strings.Cut(trimmedLine, configEntrySeparatorConstant)
		if separatorFound {
			configurationEntries[entryKey] = entryValue
		}
	}
	return configurationEntries, nil
}

// IntegrityCheck runs git fsck against the repository.
func (service *Service) IntegrityCheck(executionContext context.Context, repositoryPath string) error {
	arguments := []string{fsckSubcommandConstant}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath})
	return executionError
}

// ExpireReflogs drops every reference log entry immediately.
func (service *Service) ExpireReflogs(executionContext context.Context, repositoryPath string) error {
	arguments := []string{reflogSubcommandConstant, reflogExpireArgumentConstant, reflogExpireNowFlagConstant, reflogAllFlagConstant}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath})
	return executionError
}

// CollectGarbage runs an aggressive garbage-collection pass.
func (service *Service) CollectGarbage(executionContext context.Context, repositoryPath string) error {
	arguments := []string{gcSubcommandConstant, gcPruneNowFlagConstant}
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath})
	return executionError
}
