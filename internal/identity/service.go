// Package identity wraps the host's user and group management tools. The OS
// identity database is the authoritative store for repository access: a user
// can reach a repository exactly when they are a member of its group.
package identity

import (
	"context"
	"errors"
	"os/exec"
	"sort"
	"strings"

	"github.com/gmgdev/gmg/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant = "identity service requires a shell executor"

	createHomeFlagConstant         = "-m"
	loginShellFlagConstant         = "--shell"
	displayNameFlagConstant        = "-f"
	addMemberFlagConstant          = "-a"
	removeMemberFlagConstant       = "-d"
	recursiveChownFlagConstant     = "-R"
	groupDatabaseNameConstant      = "group"
	passwdDatabaseNameConstant     = "passwd"
	groupNamesFlagConstant         = "-nG"
	databaseFieldSeparatorConstant = ":"
	memberListSeparatorConstant    = ","
	ownerGroupSeparatorConstant    = ":"
	groupMemberFieldIndexConstant  = 3
	passwdFieldCountConstant       = 7
	passwdDisplayNameFieldConstant = 4
	passwdShellFieldConstant       = 6
)

// CommandExecutor is the subset of execshell.ShellExecutor required by the service.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
	ExecuteTolerant(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// ErrExecutorNotConfigured indicates the service was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// AccountRecord describes one entry of the host account database.
type AccountRecord struct {
	Login       string
	DisplayName string
	Shell       string
}

// Service exposes the identity operations consumed by the hosting engine.
type Service struct {
	executor          CommandExecutor
	shellPathResolver func(executableName string) (string, error)
}

// NewService constructs an identity service around the provided executor.
func NewService(executor CommandExecutor) (*Service, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Service{executor: executor, shellPathResolver: exec.LookPath}, nil
}

// SetShellPathResolver overrides PATH resolution, used by tests.
func (service *Service) SetShellPathResolver(resolver func(executableName string) (string, error)) {
	service.shellPathResolver = resolver
}

// ResolveShellPath locates an executable on the host's search path.
func (service *Service) ResolveShellPath(executableName string) (string, error) {
	return service.shellPathResolver(executableName)
}

// CreateGroup allocates an OS group.
func (service *Service) CreateGroup(executionContext context.Context, groupName string) error {
	command := execshell.ShellCommand{Name: execshell.CommandGroupAdd, Details: execshell.CommandDetails{Arguments: []string{groupName}}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}

// DeleteGroup removes an OS group.
func (service *Service) DeleteGroup(executionContext context.Context, groupName string) error {
	command := execshell.ShellCommand{Name: execshell.CommandGroupDel, Details: execshell.CommandDetails{Arguments: []string{groupName}}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}

// CreateAccount allocates an OS account with a home directory and the supplied login shell.
func (service *Service) CreateAccount(executionContext context.Context, login string, shellPath string) error {
	arguments := []string{createHomeFlagConstant, loginShellFlagConstant, shellPath, login}
	command := execshell.ShellCommand{Name: execshell.CommandUserAdd, Details: execshell.CommandDetails{Arguments: arguments}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}

// SetDisplayName records the human-readable name for an account.
func (service *Service) SetDisplayName(executionContext context.Context, login string, displayName string) error {
	arguments := []string{displayNameFlagConstant, displayName, login}
	command := execshell.ShellCommand{Name: execshell.CommandChfn, Details: execshell.CommandDetails{Arguments: arguments}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}

// DeleteAccount removes an OS account without touching its home directory.
func (service *Service) DeleteAccount(executionContext context.Context, login string) error {
	command := execshell.ShellCommand{Name: execshell.CommandUserDel, Details: execshell.CommandDetails{Arguments: []string{login}}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}

// AccountExists reports whether an account is present in the identity database.
func (service *Service) AccountExists(executionContext context.Context, login string) (bool, error) {
	command := execshell.ShellCommand{Name: execshell.CommandID, Details: execshell.CommandDetails{Arguments: []string{login}}}
	executionResult, executionError := service.executor.ExecuteTolerant(executionContext, command)
	if executionError != nil {
		return false, executionError
	}
	return executionResult.ExitCode == 0, nil
}

// AddGroupMember grants an account membership in a group.
func (service *Service) AddGroupMember(executionContext context.Context, groupName string, login string) error {
	arguments := []string{addMemberFlagConstant, login, groupName}
	command := execshell.ShellCommand{Name: execshell.CommandGpasswd, Details: execshell.CommandDetails{Arguments: arguments}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}

// RemoveGroupMember revokes an account's membership in a group. Removal is
// tolerant of the membership being absent already, keeping revoke retry-safe.
func (service *Service) RemoveGroupMember(executionContext context.Context, groupName string, login string) error {
	arguments := []string{removeMemberFlagConstant, login, groupName}
	command := execshell.ShellCommand{Name: execshell.CommandGpasswd, Details: execshell.CommandDetails{Arguments: arguments}}
	_, executionError := service.executor.ExecuteTolerant(executionContext, command)
	return executionError
}

// GroupMembers returns the sorted member logins of a group. A missing group
// reads as an empty membership list.
func (service *Service) GroupMembers(executionContext context.Context, groupName string) ([]string, error) {
	arguments := []string{groupDatabaseNameConstant, groupName}
	command := execshell.ShellCommand{Name: execshell.CommandGetent, Details: execshell.CommandDetails{Arguments: arguments}}
	executionResult, executionError := service.executor.ExecuteTolerant(executionContext, command)
	if executionError != nil {
		return nil, executionError
	}
	if executionResult.ExitCode != 0 {
		return nil, nil
	}

	databaseFields := strings.Split(strings.TrimSpace(executionResult.StandardOutput), databaseFieldSeparatorConstant)
	if len(databaseFields) <= groupMemberFieldIndexConstant {
		return nil, nil
	}

	var memberLogins []string
	for _, memberLogin := range strings.Split(databaseFields[groupMemberFieldIndexConstant], memberListSeparatorConstant) {
		trimmedLogin := strings.TrimSpace(memberLogin)
		if len(trimmedLogin) > 0 {
			memberLogins = append(memberLogins, trimmedLogin)
		}
	}
	sort.Strings(memberLogins)
	return memberLogins, nil
}

// AccountGroups returns the group names an account belongs to.
func (service *Service) AccountGroups(executionContext context.Context, login string) ([]string, error) {
	arguments := []string{groupNamesFlagConstant, login}
	command := execshell.ShellCommand{Name: execshell.CommandID, Details: execshell.CommandDetails{Arguments: arguments}}
	executionResult, executionError := service.executor.Execute(executionContext, command)
	if executionError != nil {
		return nil, executionError
	}
	return strings.Fields(executionResult.StandardOutput), nil
}

// AccountsByShell enumerates accounts whose login shell matches shellPath.
func (service *Service) AccountsByShell(executionContext context.Context, shellPath string) ([]AccountRecord, error) {
	arguments := []string{passwdDatabaseNameConstant}
	command := execshell.ShellCommand{Name: execshell.CommandGetent, Details: execshell.CommandDetails{Arguments: arguments}}
	executionResult, executionError := service.executor.Execute(executionContext, command)
	if executionError != nil {
		return nil, executionError
	}

	var accountRecords []AccountRecord
	for _, databaseLine := range strings.Split(executionResult.StandardOutput, "\n") {
		databaseFields := strings.Split(strings.TrimSpace(databaseLine), databaseFieldSeparatorConstant)
		if len(databaseFields) != passwdFieldCountConstant {
			continue
		}
		if databaseFields[passwdShellFieldConstant] != shellPath {
			continue
		}
		displayName, _, _ := strings.Cut(databaseFields[passwdDisplayNameFieldConstant], memberListSeparatorConstant)
		accountRecords = append(accountRecords, AccountRecord{
			Login:       databaseFields[0],
			DisplayName: displayName,
			Shell:       databaseFields[passwdShellFieldConstant],
		})
	}

	sort.Slice(accountRecords, func(firstIndex int, secondIndex int) bool {
		return accountRecords[firstIndex].Login < accountRecords[secondIndex].Login
	})
	return accountRecords, nil
}

// ChangeOwner reassigns ownership of a path. An empty groupName changes the
// owner only; recursive applies the change to the whole tree.
func (service *Service) ChangeOwner(executionContext context.Context, path string, ownerName string, groupName string, recursive bool) error {
	ownershipSpec := ownerName
	if len(groupName) > 0 {
		ownershipSpec = ownerName + ownerGroupSeparatorConstant + groupName
	}

	var arguments []string
	if recursive {
		arguments = append(arguments, recursiveChownFlagConstant)
	}
	arguments = append(arguments, ownershipSpec, path)

	command := execshell.ShellCommand{Name: execshell.CommandChown, Details: execshell.CommandDetails{Arguments: arguments}}
	_, executionError := service.executor.Execute(executionContext, command)
	return executionError
}
