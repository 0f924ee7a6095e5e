package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmgdev/gmg/internal/execshell"
	"github.com/gmgdev/gmg/internal/identity"
)

type recordedInvocation struct {
	command  execshell.ShellCommand
	tolerant bool
}

type recordingCommandExecutor struct {
	invocations []recordedInvocation
	nextResult  execshell.ExecutionResult
}

func (executor *recordingCommandExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.invocations = append(executor.invocations, recordedInvocation{command: command})
	return executor.nextResult, nil
}

func (executor *recordingCommandExecutor) ExecuteTolerant(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.invocations = append(executor.invocations, recordedInvocation{command: command, tolerant: true})
	return executor.nextResult, nil
}

func newIdentityServiceFixture(testInstance *testing.T) (*identity.Service, *recordingCommandExecutor) {
	executor := &recordingCommandExecutor{}
	builtService, constructionError := identity.NewService(executor)
	require.NoError(testInstance, constructionError)
	return builtService, executor
}

func TestNewServiceRequiresExecutor(testInstance *testing.T) {
	_, constructionError := identity.NewService(nil)
	require.ErrorIs(testInstance, constructionError, identity.ErrExecutorNotConfigured)
}

func TestCreateAccountArguments(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)

	require.NoError(testInstance, service.CreateAccount(context.Background(), "alice", "/usr/bin/git-shell"))
	require.Len(testInstance, executor.invocations, 1)
	require.Equal(testInstance, execshell.CommandUserAdd, executor.invocations[0].command.Name)
	require.Equal(testInstance, []string{"-m", "--shell", "/usr/bin/git-shell", "alice"}, executor.invocations[0].command.Details.Arguments)
	require.False(testInstance, executor.invocations[0].tolerant)
}

func TestGroupMembershipEditArguments(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)

	require.NoError(testInstance, service.AddGroupMember(context.Background(), "g_project", "alice"))
	require.Equal(testInstance, execshell.CommandGpasswd, executor.invocations[0].command.Name)
	require.Equal(testInstance, []string{"-a", "alice", "g_project"}, executor.invocations[0].command.Details.Arguments)
	require.False(testInstance, executor.invocations[0].tolerant)

	require.NoError(testInstance, service.RemoveGroupMember(context.Background(), "g_project", "alice"))
	require.Equal(testInstance, []string{"-d", "alice", "g_project"}, executor.invocations[1].command.Details.Arguments)
	require.True(testInstance, executor.invocations[1].tolerant)
}

func TestAccountExistsReadsExitCode(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)

	executor.nextResult = execshell.ExecutionResult{ExitCode: 0}
	present, existsError := service.AccountExists(context.Background(), "alice")
	require.NoError(testInstance, existsError)
	require.True(testInstance, present)

	executor.nextResult = execshell.ExecutionResult{ExitCode: 1}
	present, existsError = service.AccountExists(context.Background(), "ghost")
	require.NoError(testInstance, existsError)
	require.False(testInstance, present)
}

func TestGroupMembersParsesDatabaseEntry(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)
	executor.nextResult = execshell.ExecutionResult{StandardOutput: "g_project:x:1001:bob, alice\n"}

	memberLogins, membersError := service.GroupMembers(context.Background(), "g_project")
	require.NoError(testInstance, membersError)
	require.Equal(testInstance, []string{"alice", "bob"}, memberLogins)
	require.Equal(testInstance, execshell.CommandGetent, executor.invocations[0].command.Name)
	require.Equal(testInstance, []string{"group", "g_project"}, executor.invocations[0].command.Details.Arguments)
}

func TestGroupMembersMissingGroupReadsEmpty(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)
	executor.nextResult = execshell.ExecutionResult{ExitCode: 2}

	memberLogins, membersError := service.GroupMembers(context.Background(), "g_ghost")
	require.NoError(testInstance, membersError)
	require.Empty(testInstance, memberLogins)
}

func TestAccountGroupsSplitsFields(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)
	executor.nextResult = execshell.ExecutionResult{StandardOutput: "alice users g_project g_team/tools\n"}

	groupNames, groupsError := service.AccountGroups(context.Background(), "alice")
	require.NoError(testInstance, groupsError)
	require.Equal(testInstance, []string{"alice", "users", "g_project", "g_team/tools"}, groupNames)
	require.Equal(testInstance, []string{"-nG", "alice"}, executor.invocations[0].command.Details.Arguments)
}

func TestAccountsByShellFiltersAndSorts(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)
	executor.nextResult = execshell.ExecutionResult{StandardOutput: "root:x:0:0:root:/root:/bin/bash\n" +
		"carol:x:1002:1002:Carol Jones,Room 4:/home/carol:/usr/bin/git-shell\n" +
		"alice:x:1001:1001:Alice Cooper:/home/alice:/usr/bin/git-shell\n" +
		"daemon:x:2:2:daemon:/sbin:/usr/sbin/nologin\n"}

	accountRecords, listError := service.AccountsByShell(context.Background(), "/usr/bin/git-shell")
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []identity.AccountRecord{
		{Login: "alice", DisplayName: "Alice Cooper", Shell: "/usr/bin/git-shell"},
		{Login: "carol", DisplayName: "Carol Jones", Shell: "/usr/bin/git-shell"},
	}, accountRecords)
}

func TestChangeOwnerArguments(testInstance *testing.T) {
	service, executor := newIdentityServiceFixture(testInstance)

	require.NoError(testInstance, service.ChangeOwner(context.Background(), "/git/project.git", "git", "g_project", true))
	require.Equal(testInstance, execshell.CommandChown, executor.invocations[0].command.Name)
	require.Equal(testInstance, []string{"-R", "git:g_project", "/git/project.git"}, executor.invocations[0].command.Details.Arguments)

	require.NoError(testInstance, service.ChangeOwner(context.Background(), "/home/alice/team", "alice", "", false))
	require.Equal(testInstance, []string{"alice", "/home/alice/team"}, executor.invocations[1].command.Details.Arguments)
}

func TestResolveShellPathUsesResolver(testInstance *testing.T) {
	service, _ := newIdentityServiceFixture(testInstance)
	service.SetShellPathResolver(func(executableName string) (string, error) {
		return "/custom/" + executableName, nil
	})

	shellPath, resolveError := service.ResolveShellPath("git-shell")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "/custom/git-shell", shellPath)
}
