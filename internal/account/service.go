package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/gmgdev/gmg/internal/hostfs"
	"github.com/gmgdev/gmg/internal/hosting"
	"github.com/gmgdev/gmg/internal/identity"
	"github.com/gmgdev/gmg/internal/repository"
)

const (
	fileSystemNotConfiguredMessageConstant   = "account service requires a file system"
	identityNotConfiguredMessageConstant     = "account service requires an identity service"
	repositoriesNotConfiguredMessageConstant = "account service requires a repository inspector"

	stdinKeySentinelConstant   = "-"
	keyPromptMessageConstant   = "Paste a public SSH key here, Ctrl+C to abort\n"
	sshDirectoryNameConstant   = ".ssh"
	authorizedKeysFileConstant = "authorized_keys"

	homeDirectoryMode  = fs.FileMode(0o700)
	sshDirectoryMode   = fs.FileMode(0o700)
	authorizedKeysMode = fs.FileMode(0o600)
	farmDirectoryMode  = fs.FileMode(0o755)

	userCreatedTemplateConstant   = "User created: %s\n"
	userDestroyedTemplateConstant = "User destroyed: %s\n"
	homeAdvisoryTemplateConstant  = "Remove user's home directory %s if not needed\n"
	accessGrantedTemplateConstant = "User %s has been granted access to %s\n"
	accessRevokedTemplateConstant = "User %s has been revoked access to %s\n"
	listEntryTemplateConstant     = "%s\n"
	listEntryWithNameConstant     = "%s (%s)\n"
)

// IdentityService lists the OS identity operations the account service uses.
type IdentityService interface {
	CreateAccount(executionContext context.Context, login string, shellPath string) error
	SetDisplayName(executionContext context.Context, login string, displayName string) error
	DeleteAccount(executionContext context.Context, login string) error
	AccountExists(executionContext context.Context, login string) (bool, error)
	AddGroupMember(executionContext context.Context, groupName string, login string) error
	RemoveGroupMember(executionContext context.Context, groupName string, login string) error
	AccountGroups(executionContext context.Context, login string) ([]string, error)
	AccountsByShell(executionContext context.Context, shellPath string) ([]identity.AccountRecord, error)
	ChangeOwner(executionContext context.Context, path string, ownerName string, groupName string, recursive bool) error
	ResolveShellPath(shellName string) (string, error)
}

// RepositoryInspector exposes the read-only repository views the account
// service needs when building derived artifacts.
type RepositoryInspector interface {
	Exists(repo repository.Repository) error
	Description(repo repository.Repository) (string, bool, error)
}

// Dependencies supplies collaborators for the account service.
type Dependencies struct {
	Settings     hosting.Settings
	FileSystem   hostfs.FileSystem
	Identity     IdentityService
	Repositories RepositoryInspector
	Input        io.Reader
	Output       io.Writer
	Errors       io.Writer
}

// Construction sentinels.
var (
	ErrFileSystemNotConfigured   = errors.New(fileSystemNotConfiguredMessageConstant)
	ErrIdentityNotConfigured     = errors.New(identityNotConfiguredMessageConstant)
	ErrRepositoriesNotConfigured = errors.New(repositoriesNotConfiguredMessageConstant)
)

// Service implements account lifecycle and access-edge operations.
type Service struct {
	dependencies Dependencies
}

// NewService constructs an account service after validating its dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Identity == nil {
		return nil, ErrIdentityNotConfigured
	}
	if dependencies.Repositories == nil {
		return nil, ErrRepositoriesNotConfigured
	}
	if dependencies.Input == nil {
		dependencies.Input = strings.NewReader("")
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Errors == nil {
		dependencies.Errors = io.Discard
	}
	return &Service{dependencies: dependencies}, nil
}

// HomeDirectory returns the account's home directory path.
func (service *Service) HomeDirectory(account Account) string {
	return service.dependencies.Settings.HomeDirectory(account.Login())
}

// Exists reports whether the OS account is present.
func (service *Service) Exists(executionContext context.Context, account Account) error {
	present, checkError := service.dependencies.Identity.AccountExists(executionContext, account.Login())
	if checkError != nil {
		return checkError
	}
	if !present {
		return hosting.EntityError(hosting.ErrUserNotFound, account.Login())
	}
	return nil
}

// Create allocates the OS account with the restricted hosting shell, sets the
// display name, locks the home directory, seeds the SSH authorized-keys file,
// and writes an initial empty catalog. The key is read from keySource, or
// interactively from standard input when keySource is "-".
func (service *Service) Create(executionContext context.Context, account Account, displayName string, keySource string) error {
	publicKey, keyError := service.readPublicKey(keySource)
	if keyError != nil {
		return keyError
	}
	shellPath, shellError := service.dependencies.Identity.ResolveShellPath(service.dependencies.Settings.RestrictedShell)
	if shellError != nil {
		return shellError
	}

	if accountError := service.dependencies.Identity.CreateAccount(executionContext, account.Login(), shellPath); accountError != nil {
		return accountError
	}
	if nameError := service.dependencies.Identity.SetDisplayName(executionContext, account.Login(), displayName); nameError != nil {
		return nameError
	}

	homeDirectory := service.HomeDirectory(account)
	fileSystem := service.dependencies.FileSystem
	if permissionError := fileSystem.Chmod(homeDirectory, homeDirectoryMode); permissionError != nil {
		return permissionError
	}
	sshDirectory := filepath.Join(homeDirectory, sshDirectoryNameConstant)
	if directoryError := fileSystem.MkdirAll(sshDirectory, sshDirectoryMode); directoryError != nil {
		return directoryError
	}
	if writeError := fileSystem.WriteFile(filepath.Join(sshDirectory, authorizedKeysFileConstant), []byte(publicKey), authorizedKeysMode); writeError != nil {
		return writeError
	}
	if permissionError := fileSystem.Chmod(sshDirectory, sshDirectoryMode); permissionError != nil {
		return permissionError
	}
	if ownershipError := service.dependencies.Identity.ChangeOwner(executionContext, sshDirectory, account.Login(), "", true); ownershipError != nil {
		return ownershipError
	}

	if catalogError := service.RefreshCatalog(executionContext, account); catalogError != nil {
		return catalogError
	}
	fmt.Fprintf(service.dependencies.Output, userCreatedTemplateConstant, account.Login())
	return nil
}

func (service *Service) readPublicKey(keySource string) (string, error) {
	if keySource == stdinKeySentinelConstant {
		fmt.Fprint(service.dependencies.Output, keyPromptMessageConstant)
		keyContent, readError := io.ReadAll(service.dependencies.Input)
		if readError != nil {
			return "", readError
		}
		return string(keyContent), nil
	}
	keyContent, readError := service.dependencies.FileSystem.ReadFile(keySource)
	if readError != nil {
		return "", readError
	}
	return string(keyContent), nil
}

// Remove deletes the OS account and the user's catalog file. The home
// directory is left in place and surfaced as a manual follow-up; it may hold
// data outside this tool's scope.
func (service *Service) Remove(executionContext context.Context, account Account) error {
	if existsError := service.Exists(executionContext, account); existsError != nil {
		return existsError
	}
	if deleteError := service.dependencies.Identity.DeleteAccount(executionContext, account.Login()); deleteError != nil {
		return deleteError
	}
	_ = service.dependencies.FileSystem.Remove(service.dependencies.Settings.CatalogPath(account.Login()))
	fmt.Fprintf(service.dependencies.Output, userDestroyedTemplateConstant, account.Login())
	fmt.Fprintf(service.dependencies.Output, homeAdvisoryTemplateConstant, service.HomeDirectory(account))
	return nil
}

// Repositories derives the account's accessible repositories from OS group
// membership, filtered to the hosting group prefix and sorted by name.
func (service *Service) Repositories(executionContext context.Context, account Account) ([]repository.Repository, error) {
	if existsError := service.Exists(executionContext, account); existsError != nil {
		return nil, existsError
	}
	groupNames, groupsError := service.dependencies.Identity.AccountGroups(executionContext, account.Login())
	if groupsError != nil {
		return nil, groupsError
	}
	accessibleRepositories := lo.FilterMap(groupNames, func(groupName string, _ int) (repository.Repository, bool) {
		repositoryName, matched := service.dependencies.Settings.RepositoryName(groupName)
		if !matched {
			return repository.Repository{}, false
		}
		parsedRepository, parseError := repository.ParseName(repositoryName)
		if parseError != nil {
			return repository.Repository{}, false
		}
		return parsedRepository, true
	})
	sort.Slice(accessibleRepositories, func(leftIndex int, rightIndex int) bool {
		return accessibleRepositories[leftIndex].Name() < accessibleRepositories[rightIndex].Name()
	})
	return accessibleRepositories, nil
}

// Grant adds the account to the repository's OS group, rebuilds the symlink
// for the repository inside the user's farm, and regenerates the catalog.
func (service *Service) Grant(executionContext context.Context, account Account, repo repository.Repository) error {
	if existsError := service.Exists(executionContext, account); existsError != nil {
		return existsError
	}
	if existsError := service.dependencies.Repositories.Exists(repo); existsError != nil {
		return existsError
	}
	if memberError := service.dependencies.Identity.AddGroupMember(executionContext, service.dependencies.Settings.RepositoryGroup(repo.Name()), account.Login()); memberError != nil {
		return memberError
	}

	homeDirectory := service.HomeDirectory(account)
	fileSystem := service.dependencies.FileSystem
	nameSegments := repo.Segments()
	if len(nameSegments) > 1 {
		parentDirectory := filepath.Join(append([]string{homeDirectory}, nameSegments[:len(nameSegments)-1]...)...)
		if directoryError := fileSystem.MkdirAll(parentDirectory, farmDirectoryMode); directoryError != nil {
			return directoryError
		}
		// First grant under a new top-level segment hands the subtree to
		// the user so later nested creation works without privileges.
		topSegmentDirectory := filepath.Join(homeDirectory, nameSegments[0])
		if ownershipError := service.dependencies.Identity.ChangeOwner(executionContext, topSegmentDirectory, account.Login(), "", true); ownershipError != nil {
			return ownershipError
		}
	}

	// Lstat, not Stat: a stale entry here may be a dangling symlink left by
	// an earlier destroy, which Stat would report as absent.
	symlinkPath := filepath.Join(homeDirectory, repo.Name())
	if _, lstatError := fileSystem.Lstat(symlinkPath); lstatError == nil {
		if removalError := fileSystem.Remove(symlinkPath); removalError != nil {
			return removalError
		}
	}
	if linkError := fileSystem.Symlink(service.dependencies.Settings.RepositoryDirectory(repo.Name()), symlinkPath); linkError != nil {
		return linkError
	}

	if catalogError := service.RefreshCatalog(executionContext, account); catalogError != nil {
		return catalogError
	}
	fmt.Fprintf(service.dependencies.Output, accessGrantedTemplateConstant, account.Login(), repo.Name())
	return nil
}

// Revoke removes the account from the repository's OS group, deletes the
// farm symlink, prunes now-empty farm directories, and regenerates the
// catalog. Group-membership removal is tolerant so revoking an already
// revoked user still succeeds.
func (service *Service) Revoke(executionContext context.Context, account Account, repo repository.Repository) error {
	if existsError := service.Exists(executionContext, account); existsError != nil {
		return existsError
	}
	if memberError := service.dependencies.Identity.RemoveGroupMember(executionContext, service.dependencies.Settings.RepositoryGroup(repo.Name()), account.Login()); memberError != nil {
		return memberError
	}

	homeDirectory := service.HomeDirectory(account)
	fileSystem := service.dependencies.FileSystem
	_ = fileSystem.Remove(filepath.Join(homeDirectory, repo.Name()))

	nameSegments := repo.Segments()
	if len(nameSegments) > 1 {
		service.pruneEmptyDirectories(filepath.Join(homeDirectory, nameSegments[0]))
	}

	if catalogError := service.RefreshCatalog(executionContext, account); catalogError != nil {
		return catalogError
	}
	fmt.Fprintf(service.dependencies.Output, accessRevokedTemplateConstant, account.Login(), repo.Name())
	return nil
}

// pruneEmptyDirectories removes empty directories bottom-up under root,
// including root itself, best-effort.
func (service *Service) pruneEmptyDirectories(rootDirectory string) {
	fileSystem := service.dependencies.FileSystem
	var directoryPaths []string
	walkError := fileSystem.WalkDir(rootDirectory, func(entryPath string, directoryEntry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return nil
		}
		if directoryEntry.IsDir() {
			directoryPaths = append(directoryPaths, entryPath)
		}
		return nil
	})
	if walkError != nil {
		return
	}
	for pathIndex := len(directoryPaths) - 1; pathIndex >= 0; pathIndex-- {
		_ = fileSystem.Remove(directoryPaths[pathIndex])
	}
}

// List enumerates accounts whose login shell is the restricted hosting
// shell, sorted by login.
func (service *Service) List(executionContext context.Context, short bool) error {
	shellPath, shellError := service.dependencies.Identity.ResolveShellPath(service.dependencies.Settings.RestrictedShell)
	if shellError != nil {
		return shellError
	}
	accountRecords, listError := service.dependencies.Identity.AccountsByShell(executionContext, shellPath)
	if listError != nil {
		return listError
	}
	for _, accountRecord := range accountRecords {
		if short {
			fmt.Fprintf(service.dependencies.Output, listEntryTemplateConstant, accountRecord.Login)
			continue
		}
		fmt.Fprintf(service.dependencies.Output, listEntryWithNameConstant, accountRecord.Login, accountRecord.DisplayName)
	}
	return nil
}
