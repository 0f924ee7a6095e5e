package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gmgdev/gmg/internal/hostfs"
	"github.com/gmgdev/gmg/internal/hosting"
)

const (
	fileSystemNotConfiguredMessageConstant      = "repository service requires a file system"
	gitServiceNotConfiguredMessageConstant      = "repository service requires a git service"
	identityServiceNotConfiguredMessageConstant = "repository service requires an identity service"

	metadataFileNameConstant        = "config"
	descriptionFileNameConstant     = "description"
	hooksDirectoryNameConstant      = "hooks"
	descriptionSentinelConstant     = "Unnamed repository;"
	seedFileNameConstant            = "README.md"
	seedFileTemplateConstant        = "# %s\n"
	initialCommitMessageConstant    = "init"
	originRemoteNameConstant        = "origin"
	scratchDirectoryPatternConstant = "gmg"
	rootAccountNameConstant         = "root"
	falseFlagValueConstant          = "false"

	repositoryInitializedTemplateConstant = "Repository initialized: %s\n"
	repositoryCreatedTemplateConstant     = "Repository created: %s\n"
	repositoryArchivedTemplateConstant    = "Repository archived: %s\n"
	integrityCheckFailedTemplateConstant  = "Repository %s failed integrity check\n%s\n"
	listEntryTemplateConstant             = "%s\n"
	listEntryWithDescriptionConstant      = "%s (%s)\n"

	infoNameTemplateConstant             = "name: %s\n"
	infoDescriptionTemplateConstant      = "description: %s\n"
	infoPathTemplateConstant             = "path: %s\n"
	infoBranchesHeadingConstant          = "branches:\n"
	infoProtectedBranchesHeadingConstant = "protected branches:\n"
	infoUsersHeadingConstant             = "users:\n"
	infoMaintainersHeadingConstant       = "maintainers:\n"
	infoListEntryTemplateConstant        = " %s\n"

	sharedDirectoryMode   = fs.FileMode(0o775) | fs.ModeSetgid
	sharedFileMode        = fs.FileMode(0o664)
	repositoryRootMode    = fs.FileMode(0o770) | fs.ModeSetgid
	hooksEntryMode        = fs.FileMode(0o755)
	metadataFileMode      = fs.FileMode(0o644)
	archivedDirectoryMode = fs.FileMode(0o700)
	directoryCreateMode   = fs.FileMode(0o755)
)

// GitService lists the git operations the repository service depends on.
type GitService interface {
	InitBareShared(executionContext context.Context, repositoryPath string, defaultBranch string) error
	CloneQuiet(executionContext context.Context, sourcePath string, workingDirectory string, directoryName string) error
	StageFile(executionContext context.Context, worktreePath string, fileName string) error
	Commit(executionContext context.Context, worktreePath string, message string) error
	Push(executionContext context.Context, worktreePath string, remoteName string, branchName string) error
	Branches(executionContext context.Context, repositoryPath string) ([]string, error)
	ConfigSet(executionContext context.Context, configPath string, key string, value string) error
	ConfigUnset(executionContext context.Context, configPath string, key string) error
	ConfigList(executionContext context.Context, configPath string) (map[string]string, error)
	IntegrityCheck(executionContext context.Context, repositoryPath string) error
	ExpireReflogs(executionContext context.Context, repositoryPath string) error
	CollectGarbage(executionContext context.Context, repositoryPath string) error
}

// IdentityService lists the identity operations the repository service depends on.
type IdentityService interface {
	CreateGroup(executionContext context.Context, groupName string) error
	DeleteGroup(executionContext context.Context, groupName string) error
	GroupMembers(executionContext context.Context, groupName string) ([]string, error)
	ChangeOwner(executionContext context.Context, path string, ownerName string, groupName string, recursive bool) error
}

// Dependencies supplies collaborators for the repository service.
type Dependencies struct {
	Settings   hosting.Settings
	FileSystem hostfs.FileSystem
	Git        GitService
	Identity   IdentityService
	Output     io.Writer
	Errors     io.Writer
}

// Construction sentinels.
var (
	ErrFileSystemNotConfigured      = errors.New(fileSystemNotConfiguredMessageConstant)
	ErrGitServiceNotConfigured      = errors.New(gitServiceNotConfiguredMessageConstant)
	ErrIdentityServiceNotConfigured = errors.New(identityServiceNotConfiguredMessageConstant)
)

// CreateOptions modifies repository creation.
type CreateOptions struct {
	// InitOnly skips the initial commit, description, and branch protection.
	// The rename saga uses it to allocate a bare shell.
	InitOnly bool
	// Description seeds the repository description; empty means none.
	Description string
}

// Service implements repository lifecycle operations.
type Service struct {
	dependencies Dependencies
}

// NewService constructs a repository service after validating its dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Git == nil {
		return nil, ErrGitServiceNotConfigured
	}
	if dependencies.Identity == nil {
		return nil, ErrIdentityServiceNotConfigured
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Errors == nil {
		dependencies.Errors = io.Discard
	}
	return &Service{dependencies: dependencies}, nil
}

// Directory returns the on-disk bare repository directory.
func (service *Service) Directory(repository Repository) string {
	return service.dependencies.Settings.RepositoryDirectory(repository.Name())
}

// Group returns the OS group representing the repository's access list.
func (service *Service) Group(repository Repository) string {
	return service.dependencies.Settings.RepositoryGroup(repository.Name())
}

// Exists reports whether the repository directory is present.
func (service *Service) Exists(repository Repository) error {
	_, statError := service.dependencies.FileSystem.Stat(service.Directory(repository))
	if statError != nil {
		return hosting.EntityError(hosting.ErrRepositoryNotFound, repository.Name())
	}
	return nil
}

// Create brings a repository into existence: directory tree, OS group, bare
// shared git repository, permission normalization, and metadata stamp. Unless
// InitOnly is set it also seeds an initial commit, writes the description, and
// protects the configured branch list.
func (service *Service) Create(executionContext context.Context, repository Repository, options CreateOptions) error {
	if service.Exists(repository) == nil {
		return hosting.EntityError(hosting.ErrRepositoryExists, repository.Name())
	}

	repositoryDirectory := service.Directory(repository)
	if creationError := service.dependencies.FileSystem.MkdirAll(repositoryDirectory, directoryCreateMode); creationError != nil {
		return creationError
	}
	if groupError := service.dependencies.Identity.CreateGroup(executionContext, service.Group(repository)); groupError != nil {
		return groupError
	}
	if initError := service.dependencies.Git.InitBareShared(executionContext, repositoryDirectory, service.dependencies.Settings.DefaultBranch); initError != nil {
		return initError
	}
	if fixError := service.Fix(executionContext, repository, false); fixError != nil {
		return fixError
	}
	if versionError := service.SetOption(executionContext, repository, versionKeyConstant, hosting.ToolVersion); versionError != nil {
		return versionError
	}
	if policyError := service.SetOption(executionContext, repository, denyNonFastForwardsKeyConstant, falseFlagValueConstant); policyError != nil {
		return policyError
	}

	if options.InitOnly {
		fmt.Fprintf(service.dependencies.Output, repositoryInitializedTemplateConstant, repository.Name())
		return nil
	}

	if commitError := service.seedInitialCommit(executionContext, repository); commitError != nil {
		return commitError
	}
	if descriptionError := service.SetDescription(repository, options.Description); descriptionError != nil {
		return descriptionError
	}
	for _, protectedBranch := range service.dependencies.Settings.ProtectedBranches {
		if protectionError := service.Protect(executionContext, repository, protectedBranch); protectionError != nil {
			return protectionError
		}
	}

	fmt.Fprintf(service.dependencies.Output, repositoryCreatedTemplateConstant, repository.Name())
	return nil
}

// seedInitialCommit clones the bare repository into a scratch directory,
// commits a single seed file, and pushes it to the default branch.
func (service *Service) seedInitialCommit(executionContext context.Context, repository Repository) error {
	scratchDirectory, scratchError := service.dependencies.FileSystem.TempDir(scratchDirectoryPatternConstant)
	if scratchError != nil {
		return scratchError
	}
	defer func() {
		_ = service.dependencies.FileSystem.RemoveAll(scratchDirectory)
	}()

	if cloneError := service.dependencies.Git.CloneQuiet(executionContext, service.Directory(repository), scratchDirectory, repository.ShortName()); cloneError != nil {
		return cloneError
	}

	worktreePath := filepath.Join(scratchDirectory, repository.ShortName())
	seedContent := fmt.Sprintf(seedFileTemplateConstant, repository.ShortName())
	if writeError := service.dependencies.FileSystem.WriteFile(filepath.Join(worktreePath, seedFileNameConstant), []byte(seedContent), sharedFileMode); writeError != nil {
		return writeError
	}
	if stageError := service.dependencies.Git.StageFile(executionContext, worktreePath, seedFileNameConstant); stageError != nil {
		return stageError
	}
	if commitError := service.dependencies.Git.Commit(executionContext, worktreePath, initialCommitMessageConstant); commitError != nil {
		return commitError
	}
	return service.dependencies.Git.Push(executionContext, worktreePath, originRemoteNameConstant, service.dependencies.Settings.DefaultBranch)
}

// Remove deletes the repository's OS group and directory tree, then prunes
// now-empty ancestor directories best-effort. Callers revoke user access
// first so each revocation still targets an existing group.
func (service *Service) Remove(executionContext context.Context, repository Repository) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	if groupError := service.dependencies.Identity.DeleteGroup(executionContext, service.Group(repository)); groupError != nil {
		return groupError
	}
	if removalError := service.dependencies.FileSystem.RemoveAll(service.Directory(repository)); removalError != nil {
		return removalError
	}

	nameSegments := repository.Segments()
	for segmentCount := len(nameSegments) - 1; segmentCount >= 1; segmentCount-- {
		ancestorPath := filepath.Join(append([]string{service.dependencies.Settings.RepositoryRoot}, nameSegments[:segmentCount]...)...)
		_ = service.dependencies.FileSystem.Remove(ancestorPath)
	}
	return nil
}

// Fix normalizes permissions and ownership across the repository tree. The
// routine is idempotent; full additionally runs a maintenance pass.
func (service *Service) Fix(executionContext context.Context, repository Repository, full bool) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}

	repositoryDirectory := service.Directory(repository)
	fileSystem := service.dependencies.FileSystem

	walkError := fileSystem.WalkDir(repositoryDirectory, func(entryPath string, directoryEntry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return visitError
		}
		if directoryEntry.IsDir() {
			return fileSystem.Chmod(entryPath, sharedDirectoryMode)
		}
		return fileSystem.Chmod(entryPath, sharedFileMode)
	})
	if walkError != nil {
		return walkError
	}
	if rootError := fileSystem.Chmod(repositoryDirectory, repositoryRootMode); rootError != nil {
		return rootError
	}

	hooksDirectory := filepath.Join(repositoryDirectory, hooksDirectoryNameConstant)
	if _, hooksStatError := fileSystem.Stat(hooksDirectory); hooksStatError == nil {
		hooksWalkError := fileSystem.WalkDir(hooksDirectory, func(entryPath string, directoryEntry fs.DirEntry, visitError error) error {
			if visitError != nil {
				return visitError
			}
			return fileSystem.Chmod(entryPath, hooksEntryMode)
		})
		if hooksWalkError != nil {
			return hooksWalkError
		}
	}

	settings := service.dependencies.Settings
	if ownershipError := service.dependencies.Identity.ChangeOwner(executionContext, repositoryDirectory, settings.ServiceAccount, service.Group(repository), true); ownershipError != nil {
		return ownershipError
	}

	// Metadata and description stay writable only through privileged paths;
	// SetOption re-applies the loose bits after each edit.
	for _, protectedFileName := range []string{metadataFileNameConstant, descriptionFileNameConstant} {
		protectedFilePath := filepath.Join(repositoryDirectory, protectedFileName)
		if ownershipError := service.dependencies.Identity.ChangeOwner(executionContext, protectedFilePath, rootAccountNameConstant, settings.ServiceAccount, false); ownershipError != nil {
			return ownershipError
		}
		if permissionError := fileSystem.Chmod(protectedFilePath, metadataFileMode); permissionError != nil {
			return permissionError
		}
	}

	if full {
		return service.Cleanup(executionContext, repository)
	}
	return nil
}

// Cleanup expires every reference log, runs an aggressive garbage-collection
// pass, and re-normalizes permissions.
func (service *Service) Cleanup(executionContext context.Context, repository Repository) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	repositoryDirectory := service.Directory(repository)
	if expireError := service.dependencies.Git.ExpireReflogs(executionContext, repositoryDirectory); expireError != nil {
		return expireError
	}
	if collectError := service.dependencies.Git.CollectGarbage(executionContext, repositoryDirectory); collectError != nil {
		return collectError
	}
	return service.Fix(executionContext, repository, false)
}

// Check runs an integrity check. Failures are advisory: they are reported on
// the error channel and never abort the enclosing operation.
func (service *Service) Check(executionContext context.Context, repository Repository) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	if checkError := service.dependencies.Git.IntegrityCheck(executionContext, service.Directory(repository)); checkError != nil {
		fmt.Fprintf(service.dependencies.Errors, integrityCheckFailedTemplateConstant, repository.Name(), checkError)
	}
	return nil
}

// Archive revokes access in bulk by deleting the repository group and locks
// the directory down to the service account. Former users keep stale symlink
// and catalog entries; archiving is one-way.
func (service *Service) Archive(executionContext context.Context, repository Repository) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	if groupError := service.dependencies.Identity.DeleteGroup(executionContext, service.Group(repository)); groupError != nil {
		return groupError
	}
	if permissionError := service.dependencies.FileSystem.Chmod(service.Directory(repository), archivedDirectoryMode); permissionError != nil {
		return permissionError
	}
	fmt.Fprintf(service.dependencies.Output, repositoryArchivedTemplateConstant, repository.Name())
	return nil
}

// Branches lists local branch names sorted lexicographically.
func (service *Service) Branches(executionContext context.Context, repository Repository) ([]string, error) {
	if existsError := service.Exists(repository); existsError != nil {
		return nil, existsError
	}
	return service.dependencies.Git.Branches(executionContext, service.Directory(repository))
}

// UserLogins returns the authoritative list of users with access, derived
// from the repository group's membership and sorted by login.
func (service *Service) UserLogins(executionContext context.Context, repository Repository) ([]string, error) {
	if existsError := service.Exists(repository); existsError != nil {
		return nil, existsError
	}
	return service.dependencies.Identity.GroupMembers(executionContext, service.Group(repository))
}

// Description reads the repository description; the sentinel written by git
// init reads back as absent.
func (service *Service) Description(repository Repository) (string, bool, error) {
	descriptionContent, readError := service.dependencies.FileSystem.ReadFile(filepath.Join(service.Directory(repository), descriptionFileNameConstant))
	if readError != nil {
		return "", false, readError
	}
	descriptionText := string(descriptionContent)
	if strings.HasPrefix(descriptionText, descriptionSentinelConstant) {
		return "", false, nil
	}
	return strings.TrimSpace(descriptionText), true, nil
}

// SetDescription stores the description verbatim; an empty description writes
// the sentinel so it reads back as absent.
func (service *Service) SetDescription(repository Repository, description string) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	descriptionContent := description
	if len(descriptionContent) == 0 {
		descriptionContent = descriptionSentinelConstant
	}
	return service.dependencies.FileSystem.WriteFile(filepath.Join(service.Directory(repository), descriptionFileNameConstant), []byte(descriptionContent), metadataFileMode)
}

// SetOption writes a metadata-store key and re-applies the metadata file's
// permission bits, since the external edit tool may reset them.
func (service *Service) SetOption(executionContext context.Context, repository Repository, key string, value string) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	metadataPath := filepath.Join(service.Directory(repository), metadataFileNameConstant)
	if setError := service.dependencies.Git.ConfigSet(executionContext, metadataPath, key, value); setError != nil {
		return setError
	}
	return service.dependencies.FileSystem.Chmod(metadataPath, metadataFileMode)
}

// UnsetOption removes a metadata-store key, re-applying permissions like SetOption.
func (service *Service) UnsetOption(executionContext context.Context, repository Repository, key string) error {
	if existsError := service.Exists(repository); existsError != nil {
		return existsError
	}
	metadataPath := filepath.Join(service.Directory(repository), metadataFileNameConstant)
	if unsetError := service.dependencies.Git.ConfigUnset(executionContext, metadataPath, key); unsetError != nil {
		return unsetError
	}
	return service.dependencies.FileSystem.Chmod(metadataPath, metadataFileMode)
}

// Protect flags a branch as protected in the metadata store.
func (service *Service) Protect(executionContext context.Context, repository Repository, branchName string) error {
	return service.SetOption(executionContext, repository, branchProtectedKey(branchName), enabledFlagValueConstant)
}

// Unprotect removes a branch's protection flag.
func (service *Service) Unprotect(executionContext context.Context, repository Repository, branchName string) error {
	return service.UnsetOption(executionContext, repository, branchProtectedKey(branchName))
}

// SetMaintainer flags a login as maintainer in the metadata store.
func (service *Service) SetMaintainer(executionContext context.Context, repository Repository, login string) error {
	return service.SetOption(executionContext, repository, userMaintainerKey(login), enabledFlagValueConstant)
}

// UnsetMaintainer removes a login's maintainer flag.
func (service *Service) UnsetMaintainer(executionContext context.Context, repository Repository, login string) error {
	return service.UnsetOption(executionContext, repository, userMaintainerKey(login))
}

// Metadata returns the typed view of the repository's metadata store.
func (service *Service) Metadata(executionContext context.Context, repository Repository) (Metadata, error) {
	if existsError := service.Exists(repository); existsError != nil {
		return Metadata{}, existsError
	}
	metadataPath := filepath.Join(service.Directory(repository), metadataFileNameConstant)
	configurationEntries, listError := service.dependencies.Git.ConfigList(executionContext, metadataPath)
	if listError != nil {
		return Metadata{}, listError
	}
	return parseMetadata(configurationEntries), nil
}

// Info writes the aggregate repository view: description, branches, protected
// branches, users, and maintainers.
func (service *Service) Info(executionContext context.Context, repository Repository) error {
	metadata, metadataError := service.Metadata(executionContext, repository)
	if metadataError != nil {
		return metadataError
	}
	branchNames, branchesError := service.Branches(executionContext, repository)
	if branchesError != nil {
		return branchesError
	}
	userLogins, usersError := service.UserLogins(executionContext, repository)
	if usersError != nil {
		return usersError
	}

	outputWriter := service.dependencies.Output
	fmt.Fprintf(outputWriter, infoNameTemplateConstant, repository.Name())
	if descriptionText, descriptionPresent, descriptionError := service.Description(repository); descriptionError == nil && descriptionPresent {
		fmt.Fprintf(outputWriter, infoDescriptionTemplateConstant, descriptionText)
	}
	fmt.Fprintf(outputWriter, infoPathTemplateConstant, service.Directory(repository))
	fmt.Fprint(outputWriter, infoBranchesHeadingConstant)
	for _, branchName := range branchNames {
		fmt.Fprintf(outputWriter, infoListEntryTemplateConstant, branchName)
	}
	fmt.Fprint(outputWriter, infoProtectedBranchesHeadingConstant)
	for _, protectedBranch := range metadata.ProtectedBranches {
		fmt.Fprintf(outputWriter, infoListEntryTemplateConstant, protectedBranch)
	}
	fmt.Fprint(outputWriter, infoUsersHeadingConstant)
	for _, userLogin := range userLogins {
		fmt.Fprintf(outputWriter, infoListEntryTemplateConstant, userLogin)
	}
	fmt.Fprint(outputWriter, infoMaintainersHeadingConstant)
	for _, maintainerLogin := range metadata.Maintainers {
		fmt.Fprintf(outputWriter, infoListEntryTemplateConstant, maintainerLogin)
	}
	return nil
}

// List enumerates every on-disk repository, sorted by name.
func (service *Service) List(short bool) error {
	repositoryRoot := service.dependencies.Settings.RepositoryRoot
	fileSystem := service.dependencies.FileSystem

	var repositoryNames []string
	walkError := fileSystem.WalkDir(repositoryRoot, func(entryPath string, directoryEntry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return nil
		}
		if !directoryEntry.IsDir() || !strings.HasSuffix(directoryEntry.Name(), reservedNameSuffixConstant) {
			return nil
		}
		relativePath, relativeError := filepath.Rel(repositoryRoot, entryPath)
		if relativeError == nil {
			repositoryNames = append(repositoryNames, strings.TrimSuffix(relativePath, reservedNameSuffixConstant))
		}
		return fs.SkipDir
	})
	if walkError != nil {
		return walkError
	}
	sort.Strings(repositoryNames)

	for _, repositoryName := range repositoryNames {
		parsedRepository, parseError := ParseName(repositoryName)
		if parseError != nil {
			continue
		}
		if short {
			fmt.Fprintf(service.dependencies.Output, listEntryTemplateConstant, parsedRepository.Name())
			continue
		}
		descriptionText, descriptionPresent, _ := service.Description(parsedRepository)
		if descriptionPresent {
			fmt.Fprintf(service.dependencies.Output, listEntryWithDescriptionConstant, parsedRepository.Name(), descriptionText)
			continue
		}
		fmt.Fprintf(service.dependencies.Output, listEntryTemplateConstant, parsedRepository.Name())
	}
	return nil
}
