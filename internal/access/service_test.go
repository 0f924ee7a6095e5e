package access_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmgdev/gmg/internal/access"
	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/hostfs/testsupport"
	"github.com/gmgdev/gmg/internal/hosting"
	"github.com/gmgdev/gmg/internal/repository"
)

type stubRepositoryManager struct {
	settings        hosting.Settings
	fileSystem      *testsupport.MemoryFileSystem
	userLogins      map[string][]string
	operations      []string
	createError     error
	fixError        error
	removeError     error
	descriptions    map[string]string
	maintainerFlags map[string]bool
}

func newStubRepositoryManager(fileSystem *testsupport.MemoryFileSystem) *stubRepositoryManager {
	return &stubRepositoryManager{
		settings:        hosting.DefaultSettings(),
		fileSystem:      fileSystem,
		userLogins:      make(map[string][]string),
		descriptions:    make(map[string]string),
		maintainerFlags: make(map[string]bool),
	}
}

func (manager *stubRepositoryManager) record(operation string) {
	manager.operations = append(manager.operations, operation)
}

func (manager *stubRepositoryManager) Exists(repo repository.Repository) error {
	if _, statError := manager.fileSystem.Stat(manager.Directory(repo)); statError != nil {
		return hosting.EntityError(hosting.ErrRepositoryNotFound, repo.Name())
	}
	return nil
}

func (manager *stubRepositoryManager) Create(_ context.Context, repo repository.Repository, _ repository.CreateOptions) error {
	manager.record("create " + repo.Name())
	if manager.createError != nil {
		return manager.createError
	}
	if creationError := manager.fileSystem.MkdirAll(manager.Directory(repo), 0o755); creationError != nil {
		return creationError
	}
	return manager.fileSystem.WriteFile(manager.Directory(repo)+"/config", []byte(""), 0o644)
}

func (manager *stubRepositoryManager) Remove(_ context.Context, repo repository.Repository) error {
	manager.record("remove " + repo.Name())
	if manager.removeError != nil {
		return manager.removeError
	}
	return manager.fileSystem.RemoveAll(manager.Directory(repo))
}

func (manager *stubRepositoryManager) Fix(_ context.Context, repo repository.Repository, _ bool) error {
	manager.record("fix " + repo.Name())
	return manager.fixError
}

func (manager *stubRepositoryManager) Directory(repo repository.Repository) string {
	return manager.settings.RepositoryDirectory(repo.Name())
}

func (manager *stubRepositoryManager) UserLogins(_ context.Context, repo repository.Repository) ([]string, error) {
	return append([]string(nil), manager.userLogins[repo.Name()]...), nil
}

func (manager *stubRepositoryManager) SetDescription(repo repository.Repository, description string) error {
	manager.record("set-description " + repo.Name())
	manager.descriptions[repo.Name()] = description
	return nil
}

func (manager *stubRepositoryManager) SetMaintainer(_ context.Context, repo repository.Repository, login string) error {
	manager.maintainerFlags[repo.Name()+" "+login] = true
	return nil
}

func (manager *stubRepositoryManager) UnsetMaintainer(_ context.Context, repo repository.Repository, login string) error {
	delete(manager.maintainerFlags, repo.Name()+" "+login)
	return nil
}

type stubAccountManager struct {
	presentAccounts map[string]bool
	grants          []string
	revocations     []string
	refreshedLogins []string
	grantError      error
}

func newStubAccountManager() *stubAccountManager {
	return &stubAccountManager{presentAccounts: make(map[string]bool)}
}

func (manager *stubAccountManager) Exists(_ context.Context, subject account.Account) error {
	if !manager.presentAccounts[subject.Login()] {
		return hosting.EntityError(hosting.ErrUserNotFound, subject.Login())
	}
	return nil
}

func (manager *stubAccountManager) Grant(_ context.Context, subject account.Account, repo repository.Repository) error {
	if manager.grantError != nil {
		return manager.grantError
	}
	manager.grants = append(manager.grants, subject.Login()+" "+repo.Name())
	return nil
}

func (manager *stubAccountManager) Revoke(_ context.Context, subject account.Account, repo repository.Repository) error {
	manager.revocations = append(manager.revocations, subject.Login()+" "+repo.Name())
	return nil
}

func (manager *stubAccountManager) RefreshCatalog(_ context.Context, subject account.Account) error {
	manager.refreshedLogins = append(manager.refreshedLogins, subject.Login())
	return nil
}

type accessFixture struct {
	service      *access.Service
	fileSystem   *testsupport.MemoryFileSystem
	repositories *stubRepositoryManager
	accounts     *stubAccountManager
	outputBuffer *bytes.Buffer
	errorBuffer  *bytes.Buffer
}

func newAccessFixture(testInstance *testing.T) accessFixture {
	fileSystem := testsupport.NewMemoryFileSystem()
	repositoryManager := newStubRepositoryManager(fileSystem)
	accountManager := newStubAccountManager()
	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}

	builtService, constructionError := access.NewService(access.Dependencies{
		Repositories: repositoryManager,
		Accounts:     accountManager,
		FileSystem:   fileSystem,
		Output:       outputBuffer,
		Errors:       errorBuffer,
	})
	require.NoError(testInstance, constructionError)

	return accessFixture{
		service:      builtService,
		fileSystem:   fileSystem,
		repositories: repositoryManager,
		accounts:     accountManager,
		outputBuffer: outputBuffer,
		errorBuffer:  errorBuffer,
	}
}

func mustParseRepositoryName(testInstance *testing.T, name string) repository.Repository {
	parsedRepository, parseError := repository.ParseName(name)
	require.NoError(testInstance, parseError)
	return parsedRepository
}

func TestDestroyRepositoryRevokesUsersBeforeRemoval(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	targetRepository := mustParseRepositoryName(testInstance, "project")
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/git/project.git", 0o755))
	fixture.repositories.userLogins["project"] = []string{"alice", "bob"}

	destroyError := fixture.service.DestroyRepository(context.Background(), targetRepository)
	require.NoError(testInstance, destroyError)

	require.Equal(testInstance, []string{"alice project", "bob project"}, fixture.accounts.revocations)
	require.Equal(testInstance, []string{"remove project"}, fixture.repositories.operations)
	require.Contains(testInstance, fixture.outputBuffer.String(), "Repository destroyed: project")
}

func TestDestroyRepositoryMissingFails(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	targetRepository := mustParseRepositoryName(testInstance, "ghost")

	destroyError := fixture.service.DestroyRepository(context.Background(), targetRepository)
	require.ErrorIs(testInstance, destroyError, hosting.ErrRepositoryNotFound)
	require.Empty(testInstance, fixture.accounts.revocations)
}

func TestRenameRepositoryMigratesContentAndUsers(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	sourceRepository := mustParseRepositoryName(testInstance, "old-name")
	targetRepository := mustParseRepositoryName(testInstance, "new-name")
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/git/old-name.git/refs", 0o755))
	require.NoError(testInstance, fixture.fileSystem.WriteFile("/git/old-name.git/config", []byte("[core]"), 0o644))
	fixture.repositories.userLogins["old-name"] = []string{"alice"}

	renameError := fixture.service.RenameRepository(context.Background(), sourceRepository, targetRepository)
	require.NoError(testInstance, renameError)

	require.Equal(testInstance, []string{"create new-name", "fix new-name", "remove old-name"}, fixture.repositories.operations)
	require.Equal(testInstance, []string{"alice new-name"}, fixture.accounts.grants)
	require.Equal(testInstance, []string{"alice old-name"}, fixture.accounts.revocations)

	migratedConfig, readError := fixture.fileSystem.ReadFile("/git/new-name.git/config")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "[core]", string(migratedConfig))
	require.NotContains(testInstance, fixture.fileSystem.Directories, "/git/old-name.git")
}

func TestRenameRepositoryCompensatesOnMigrationFailure(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	sourceRepository := mustParseRepositoryName(testInstance, "old-name")
	targetRepository := mustParseRepositoryName(testInstance, "new-name")
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/git/old-name.git", 0o755))
	fixture.repositories.userLogins["old-name"] = []string{"alice"}
	migrationFailure := errors.New("grant rejected")
	fixture.accounts.grantError = migrationFailure

	renameError := fixture.service.RenameRepository(context.Background(), sourceRepository, targetRepository)
	require.ErrorIs(testInstance, renameError, migrationFailure)

	require.Contains(testInstance, fixture.repositories.operations, "remove new-name")
	require.Contains(testInstance, fixture.fileSystem.Directories, "/git/old-name.git")
	require.Empty(testInstance, fixture.errorBuffer.String())
}

func TestRenameRepositoryReportsCompensationFailure(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	sourceRepository := mustParseRepositoryName(testInstance, "old-name")
	targetRepository := mustParseRepositoryName(testInstance, "new-name")
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/git/old-name.git", 0o755))
	fixture.repositories.userLogins["old-name"] = []string{"alice"}
	migrationFailure := errors.New("grant rejected")
	fixture.accounts.grantError = migrationFailure
	fixture.repositories.removeError = errors.New("busy group")

	renameError := fixture.service.RenameRepository(context.Background(), sourceRepository, targetRepository)
	require.ErrorIs(testInstance, renameError, migrationFailure)
	require.Contains(testInstance, fixture.errorBuffer.String(), "Failed to destroy partially created repository new-name")
}

func TestSetDescriptionRefreshesCurrentCatalogs(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	targetRepository := mustParseRepositoryName(testInstance, "project")
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/git/project.git", 0o755))
	fixture.repositories.userLogins["project"] = []string{"alice", "bob"}

	descriptionError := fixture.service.SetDescription(context.Background(), targetRepository, "Build tooling")
	require.NoError(testInstance, descriptionError)

	require.Equal(testInstance, "Build tooling", fixture.repositories.descriptions["project"])
	require.Equal(testInstance, []string{"alice", "bob"}, fixture.accounts.refreshedLogins)
	require.Contains(testInstance, fixture.outputBuffer.String(), "Repository description updated: project")
}

func TestSetMaintainerRequiresExistingAccount(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	targetRepository := mustParseRepositoryName(testInstance, "project")
	subject, parseError := account.ParseLogin("alice")
	require.NoError(testInstance, parseError)

	maintainerError := fixture.service.SetMaintainer(context.Background(), subject, targetRepository)
	require.ErrorIs(testInstance, maintainerError, hosting.ErrUserNotFound)

	fixture.accounts.presentAccounts["alice"] = true
	require.NoError(testInstance, fixture.service.SetMaintainer(context.Background(), subject, targetRepository))
	require.True(testInstance, fixture.repositories.maintainerFlags["project alice"])
	require.Contains(testInstance, fixture.outputBuffer.String(), "User alice has been set as maintainer in project")
}

func TestUnsetMaintainerSkipsAccountCheck(testInstance *testing.T) {
	fixture := newAccessFixture(testInstance)
	targetRepository := mustParseRepositoryName(testInstance, "project")
	subject, parseError := account.ParseLogin("departed")
	require.NoError(testInstance, parseError)
	fixture.repositories.maintainerFlags["project departed"] = true

	require.NoError(testInstance, fixture.service.UnsetMaintainer(context.Background(), subject, targetRepository))
	require.NotContains(testInstance, fixture.repositories.maintainerFlags, "project departed")
	require.Contains(testInstance, fixture.outputBuffer.String(), "User departed has been unset as maintainer in project")
}
