package account_test

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/hostfs/testsupport"
	"github.com/gmgdev/gmg/internal/hosting"
	"github.com/gmgdev/gmg/internal/identity"
	"github.com/gmgdev/gmg/internal/repository"
)

type membershipChange struct {
	group string
	login string
}

type recordedOwnershipChange struct {
	path      string
	owner     string
	group     string
	recursive bool
}

type stubAccountIdentity struct {
	fileSystem       *testsupport.MemoryFileSystem
	homeRoot         string
	presentAccounts  map[string]bool
	displayNames     map[string]string
	accountGroups    map[string][]string
	shellAccounts    []identity.AccountRecord
	additions        []membershipChange
	removals         []membershipChange
	deletedAccounts  []string
	ownershipChanges []recordedOwnershipChange
}

func newStubAccountIdentity(fileSystem *testsupport.MemoryFileSystem) *stubAccountIdentity {
	return &stubAccountIdentity{
		fileSystem:      fileSystem,
		homeRoot:        "/home",
		presentAccounts: make(map[string]bool),
		displayNames:    make(map[string]string),
		accountGroups:   make(map[string][]string),
	}
}

func (service *stubAccountIdentity) CreateAccount(_ context.Context, login string, _ string) error {
	service.presentAccounts[login] = true
	return service.fileSystem.MkdirAll(filepath.Join(service.homeRoot, login), 0o755)
}

func (service *stubAccountIdentity) SetDisplayName(_ context.Context, login string, displayName string) error {
	service.displayNames[login] = displayName
	return nil
}

func (service *stubAccountIdentity) DeleteAccount(_ context.Context, login string) error {
	delete(service.presentAccounts, login)
	service.deletedAccounts = append(service.deletedAccounts, login)
	return nil
}

func (service *stubAccountIdentity) AccountExists(_ context.Context, login string) (bool, error) {
	return service.presentAccounts[login], nil
}

func (service *stubAccountIdentity) AddGroupMember(_ context.Context, groupName string, login string) error {
	service.additions = append(service.additions, membershipChange{group: groupName, login: login})
	service.accountGroups[login] = append(service.accountGroups[login], groupName)
	return nil
}

func (service *stubAccountIdentity) RemoveGroupMember(_ context.Context, groupName string, login string) error {
	service.removals = append(service.removals, membershipChange{group: groupName, login: login})
	remainingGroups := service.accountGroups[login][:0]
	for _, memberGroup := range service.accountGroups[login] {
		if memberGroup != groupName {
			remainingGroups = append(remainingGroups, memberGroup)
		}
	}
	service.accountGroups[login] = remainingGroups
	return nil
}

func (service *stubAccountIdentity) AccountGroups(_ context.Context, login string) ([]string, error) {
	return append([]string(nil), service.accountGroups[login]...), nil
}

func (service *stubAccountIdentity) AccountsByShell(_ context.Context, _ string) ([]identity.AccountRecord, error) {
	return append([]identity.AccountRecord(nil), service.shellAccounts...), nil
}

func (service *stubAccountIdentity) ChangeOwner(_ context.Context, path string, ownerName string, groupName string, recursive bool) error {
	service.ownershipChanges = append(service.ownershipChanges, recordedOwnershipChange{path: path, owner: ownerName, group: groupName, recursive: recursive})
	return nil
}

func (service *stubAccountIdentity) ResolveShellPath(shellName string) (string, error) {
	return "/usr/bin/" + shellName, nil
}

type stubRepositoryInspector struct {
	presentRepositories map[string]bool
	descriptions        map[string]string
}

func newStubRepositoryInspector() *stubRepositoryInspector {
	return &stubRepositoryInspector{
		presentRepositories: make(map[string]bool),
		descriptions:        make(map[string]string),
	}
}

func (inspector *stubRepositoryInspector) Exists(repo repository.Repository) error {
	if !inspector.presentRepositories[repo.Name()] {
		return hosting.EntityError(hosting.ErrRepositoryNotFound, repo.Name())
	}
	return nil
}

func (inspector *stubRepositoryInspector) Description(repo repository.Repository) (string, bool, error) {
	descriptionText, descriptionPresent := inspector.descriptions[repo.Name()]
	return descriptionText, descriptionPresent, nil
}

type accountFixture struct {
	service      *account.Service
	fileSystem   *testsupport.MemoryFileSystem
	identity     *stubAccountIdentity
	repositories *stubRepositoryInspector
	inputBuffer  *bytes.Buffer
	outputBuffer *bytes.Buffer
}

func newAccountFixture(testInstance *testing.T) accountFixture {
	fileSystem := testsupport.NewMemoryFileSystem()
	identityStub := newStubAccountIdentity(fileSystem)
	repositoryInspector := newStubRepositoryInspector()
	inputBuffer := &bytes.Buffer{}
	outputBuffer := &bytes.Buffer{}

	builtService, constructionError := account.NewService(account.Dependencies{
		Settings:     hosting.DefaultSettings(),
		FileSystem:   fileSystem,
		Identity:     identityStub,
		Repositories: repositoryInspector,
		Input:        inputBuffer,
		Output:       outputBuffer,
		Errors:       &bytes.Buffer{},
	})
	require.NoError(testInstance, constructionError)

	return accountFixture{
		service:      builtService,
		fileSystem:   fileSystem,
		identity:     identityStub,
		repositories: repositoryInspector,
		inputBuffer:  inputBuffer,
		outputBuffer: outputBuffer,
	}
}

func mustParseAccount(testInstance *testing.T, login string) account.Account {
	parsedAccount, parseError := account.ParseLogin(login)
	require.NoError(testInstance, parseError)
	return parsedAccount
}

func mustParseRepositoryName(testInstance *testing.T, name string) repository.Repository {
	parsedRepository, parseError := repository.ParseName(name)
	require.NoError(testInstance, parseError)
	return parsedRepository
}

func TestCreateProvisionsAccount(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	require.NoError(testInstance, fixture.fileSystem.WriteFile("/tmp/alice.pub", []byte("ssh-ed25519 AAAA alice@laptop\n"), 0o644))

	creationError := fixture.service.Create(context.Background(), targetAccount, "Alice Cooper", "/tmp/alice.pub")
	require.NoError(testInstance, creationError)

	require.True(testInstance, fixture.identity.presentAccounts["alice"])
	require.Equal(testInstance, "Alice Cooper", fixture.identity.displayNames["alice"])

	authorizedKeysContent, readError := fixture.fileSystem.ReadFile("/home/alice/.ssh/authorized_keys")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "ssh-ed25519 AAAA alice@laptop\n", string(authorizedKeysContent))
	require.Equal(testInstance, fs.FileMode(0o600), fixture.fileSystem.FileModes["/home/alice/.ssh/authorized_keys"])
	require.Equal(testInstance, fs.FileMode(0o700), fixture.fileSystem.Directories["/home/alice"])
	require.Equal(testInstance, fs.FileMode(0o700), fixture.fileSystem.Directories["/home/alice/.ssh"])

	require.Contains(testInstance, fixture.identity.ownershipChanges, recordedOwnershipChange{path: "/home/alice/.ssh", owner: "alice", group: "", recursive: true})
	require.Contains(testInstance, fixture.fileSystem.Files, "/git/.config/cgit/alice.cgitrc")
	require.Contains(testInstance, fixture.outputBuffer.String(), "User created: alice")
}

func TestCreateReadsKeyFromStandardInput(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "bob")
	fixture.inputBuffer.WriteString("ssh-rsa BBBB bob@desktop\n")

	creationError := fixture.service.Create(context.Background(), targetAccount, "Bob", "-")
	require.NoError(testInstance, creationError)

	require.Contains(testInstance, fixture.outputBuffer.String(), "Paste a public SSH key here, Ctrl+C to abort")
	authorizedKeysContent, readError := fixture.fileSystem.ReadFile("/home/bob/.ssh/authorized_keys")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "ssh-rsa BBBB bob@desktop\n", string(authorizedKeysContent))
}

func TestRemoveDeletesAccountAndCatalog(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	fixture.identity.presentAccounts["alice"] = true
	require.NoError(testInstance, fixture.fileSystem.WriteFile("/git/.config/cgit/alice.cgitrc", []byte(""), 0o644))

	removalError := fixture.service.Remove(context.Background(), targetAccount)
	require.NoError(testInstance, removalError)

	require.Equal(testInstance, []string{"alice"}, fixture.identity.deletedAccounts)
	require.NotContains(testInstance, fixture.fileSystem.Files, "/git/.config/cgit/alice.cgitrc")
	require.Contains(testInstance, fixture.outputBuffer.String(), "User destroyed: alice")
	require.Contains(testInstance, fixture.outputBuffer.String(), "Remove user's home directory /home/alice if not needed")
}

func TestRemoveMissingAccountFails(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "ghost")

	removalError := fixture.service.Remove(context.Background(), targetAccount)
	require.ErrorIs(testInstance, removalError, hosting.ErrUserNotFound)
}

func TestRepositoriesFiltersHostingGroups(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	fixture.identity.presentAccounts["alice"] = true
	fixture.identity.accountGroups["alice"] = []string{"g_zeta", "users", "g_team/project", "wheel"}

	accessibleRepositories, listError := fixture.service.Repositories(context.Background(), targetAccount)
	require.NoError(testInstance, listError)

	repositoryNames := make([]string, 0, len(accessibleRepositories))
	for _, accessibleRepository := range accessibleRepositories {
		repositoryNames = append(repositoryNames, accessibleRepository.Name())
	}
	require.Equal(testInstance, []string{"team/project", "zeta"}, repositoryNames)
}

func TestGrantBuildsFarmAndSymlink(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	targetRepository := mustParseRepositoryName(testInstance, "team/project")
	fixture.identity.presentAccounts["alice"] = true
	fixture.repositories.presentRepositories["team/project"] = true
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/home/alice", 0o700))

	grantError := fixture.service.Grant(context.Background(), targetAccount, targetRepository)
	require.NoError(testInstance, grantError)

	require.Equal(testInstance, []membershipChange{{group: "g_team/project", login: "alice"}}, fixture.identity.additions)
	require.Contains(testInstance, fixture.fileSystem.Directories, "/home/alice/team")
	require.Equal(testInstance, "/git/team/project.git", fixture.fileSystem.Symlinks["/home/alice/team/project"])
	require.Contains(testInstance, fixture.identity.ownershipChanges, recordedOwnershipChange{path: "/home/alice/team", owner: "alice", group: "", recursive: true})
	require.Contains(testInstance, fixture.fileSystem.Files, "/git/.config/cgit/alice.cgitrc")
	require.Contains(testInstance, fixture.outputBuffer.String(), "User alice has been granted access to team/project")
}

func TestGrantReplacesStaleSymlink(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	targetRepository := mustParseRepositoryName(testInstance, "project")
	fixture.identity.presentAccounts["alice"] = true
	fixture.repositories.presentRepositories["project"] = true
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/home/alice", 0o700))
	require.NoError(testInstance, fixture.fileSystem.Symlink("/git/elsewhere.git", "/home/alice/project"))

	grantError := fixture.service.Grant(context.Background(), targetAccount, targetRepository)
	require.NoError(testInstance, grantError)
	require.Equal(testInstance, "/git/project.git", fixture.fileSystem.Symlinks["/home/alice/project"])
}

func TestGrantReplacesStaleFileEntry(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	targetRepository := mustParseRepositoryName(testInstance, "project")
	fixture.identity.presentAccounts["alice"] = true
	fixture.repositories.presentRepositories["project"] = true
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/home/alice", 0o700))
	require.NoError(testInstance, fixture.fileSystem.WriteFile("/home/alice/project", []byte("leftover"), 0o644))

	grantError := fixture.service.Grant(context.Background(), targetAccount, targetRepository)
	require.NoError(testInstance, grantError)

	require.NotContains(testInstance, fixture.fileSystem.Files, "/home/alice/project")
	require.Equal(testInstance, "/git/project.git", fixture.fileSystem.Symlinks["/home/alice/project"])
}

func TestGrantMissingRepositoryFails(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	targetRepository := mustParseRepositoryName(testInstance, "ghost")
	fixture.identity.presentAccounts["alice"] = true

	grantError := fixture.service.Grant(context.Background(), targetAccount, targetRepository)
	require.ErrorIs(testInstance, grantError, hosting.ErrRepositoryNotFound)
	require.Empty(testInstance, fixture.identity.additions)
}

func TestRevokeRemovesSymlinkAndPrunesFarm(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	targetRepository := mustParseRepositoryName(testInstance, "team/project")
	fixture.identity.presentAccounts["alice"] = true
	fixture.identity.accountGroups["alice"] = []string{"g_team/project"}
	require.NoError(testInstance, fixture.fileSystem.MkdirAll("/home/alice/team", 0o755))
	require.NoError(testInstance, fixture.fileSystem.Symlink("/git/team/project.git", "/home/alice/team/project"))

	revokeError := fixture.service.Revoke(context.Background(), targetAccount, targetRepository)
	require.NoError(testInstance, revokeError)

	require.Equal(testInstance, []membershipChange{{group: "g_team/project", login: "alice"}}, fixture.identity.removals)
	require.NotContains(testInstance, fixture.fileSystem.Symlinks, "/home/alice/team/project")
	require.NotContains(testInstance, fixture.fileSystem.Directories, "/home/alice/team")
	require.Contains(testInstance, fixture.outputBuffer.String(), "User alice has been revoked access to team/project")
}

func TestRefreshCatalogMergesTemplateAndRepositories(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	fixture.identity.presentAccounts["alice"] = true
	fixture.identity.accountGroups["alice"] = []string{"g_team/project", "g_zeta"}
	fixture.repositories.descriptions["team/project"] = "Build tooling"

	templateContent := "# cgit configuration\nsection=hosted\nrepo.url=stale\nrepo.path=/git/stale.git\n"
	require.NoError(testInstance, fixture.fileSystem.WriteFile("/etc/cgitrc", []byte(templateContent), 0o644))

	refreshError := fixture.service.RefreshCatalog(context.Background(), targetAccount)
	require.NoError(testInstance, refreshError)

	catalogContent, readError := fixture.fileSystem.ReadFile("/git/.config/cgit/alice.cgitrc")
	require.NoError(testInstance, readError)

	expectedCatalog := strings.Join([]string{
		"# cgit configuration",
		"section=hosted",
		"",
		"repo.url=team/project",
		"repo.path=/git/team/project.git",
		"repo.desc=Build tooling",
		"repo.url=zeta",
		"repo.path=/git/zeta.git",
		"",
	}, "\n")
	require.Equal(testInstance, expectedCatalog, string(catalogContent))
}

func TestRefreshCatalogWithoutTemplate(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	targetAccount := mustParseAccount(testInstance, "alice")
	fixture.identity.presentAccounts["alice"] = true
	fixture.identity.accountGroups["alice"] = []string{"g_zeta"}

	refreshError := fixture.service.RefreshCatalog(context.Background(), targetAccount)
	require.NoError(testInstance, refreshError)

	catalogContent, readError := fixture.fileSystem.ReadFile("/git/.config/cgit/alice.cgitrc")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "repo.url=zeta\nrepo.path=/git/zeta.git\n", string(catalogContent))
}

func TestListFormatsAccounts(testInstance *testing.T) {
	fixture := newAccountFixture(testInstance)
	fixture.identity.shellAccounts = []identity.AccountRecord{
		{Login: "alice", DisplayName: "Alice Cooper"},
		{Login: "bob", DisplayName: "Bob"},
	}

	require.NoError(testInstance, fixture.service.List(context.Background(), false))
	require.Equal(testInstance, "alice (Alice Cooper)\nbob (Bob)\n", fixture.outputBuffer.String())

	fixture.outputBuffer.Reset()
	require.NoError(testInstance, fixture.service.List(context.Background(), true))
	require.Equal(testInstance, "alice\nbob\n", fixture.outputBuffer.String())
}
