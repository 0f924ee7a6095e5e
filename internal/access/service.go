package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/hostfs"
	"github.com/gmgdev/gmg/internal/repository"
)

const (
	repositoriesNotConfiguredMessageConstant = "access service requires a repository manager"
	accountsNotConfiguredMessageConstant     = "access service requires an account manager"
	fileSystemNotConfiguredMessageConstant   = "access service requires a file system"

	repositoryDestroyedTemplateConstant = "Repository destroyed: %s\n"
	compensationFailedTemplateConstant  = "Failed to destroy partially created repository %s: %v\n"
	maintainerSetTemplateConstant       = "User %s has been set as maintainer in %s\n"
	maintainerUnsetTemplateConstant     = "User %s has been unset as maintainer in %s\n"
	descriptionUpdatedTemplateConstant  = "Repository description updated: %s\n"
)

// RepositoryManager lists the repository operations the sagas orchestrate.
type RepositoryManager interface {
	Exists(repo repository.Repository) error
	Create(executionContext context.Context, repo repository.Repository, options repository.CreateOptions) error
	Remove(executionContext context.Context, repo repository.Repository) error
	Fix(executionContext context.Context, repo repository.Repository, full bool) error
	Directory(repo repository.Repository) string
	UserLogins(executionContext context.Context, repo repository.Repository) ([]string, error)
	SetDescription(repo repository.Repository, description string) error
	SetMaintainer(executionContext context.Context, repo repository.Repository, login string) error
	UnsetMaintainer(executionContext context.Context, repo repository.Repository, login string) error
}

// AccountManager lists the account operations the sagas orchestrate.
type AccountManager interface {
	Exists(executionContext context.Context, subject account.Account) error
	Grant(executionContext context.Context, subject account.Account, repo repository.Repository) error
	Revoke(executionContext context.Context, subject account.Account, repo repository.Repository) error
	RefreshCatalog(executionContext context.Context, subject account.Account) error
}

// Dependencies supplies collaborators for the access service.
type Dependencies struct {
	Repositories RepositoryManager
	Accounts     AccountManager
	FileSystem   hostfs.FileSystem
	Output       io.Writer
	Errors       io.Writer
}

// Construction sentinels.
var (
	ErrRepositoriesNotConfigured = errors.New(repositoriesNotConfiguredMessageConstant)
	ErrAccountsNotConfigured     = errors.New(accountsNotConfiguredMessageConstant)
	ErrFileSystemNotConfigured   = errors.New(fileSystemNotConfiguredMessageConstant)
)

// Service coordinates mutations that touch both repositories and accounts.
type Service struct {
	dependencies Dependencies
}

// NewService constructs an access service after validating its dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Repositories == nil {
		return nil, ErrRepositoriesNotConfigured
	}
	if dependencies.Accounts == nil {
		return nil, ErrAccountsNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Errors == nil {
		dependencies.Errors = io.Discard
	}
	return &Service{dependencies: dependencies}, nil
}

// currentAccounts resolves the repository's group members into accounts.
func (service *Service) currentAccounts(executionContext context.Context, repo repository.Repository) ([]account.Account, error) {
	userLogins, usersError := service.dependencies.Repositories.UserLogins(executionContext, repo)
	if usersError != nil {
		return nil, usersError
	}
	accounts := make([]account.Account, 0, len(userLogins))
	for _, userLogin := range userLogins {
		subject, parseError := account.ParseLogin(userLogin)
		if parseError != nil {
			return nil, parseError
		}
		accounts = append(accounts, subject)
	}
	return accounts, nil
}

// DestroyRepository revokes every current user's access, then removes the
// repository. Revocations run first so each group-membership edit still
// targets an existing group, and each user's symlink and catalog are
// reconciled along the way.
func (service *Service) DestroyRepository(executionContext context.Context, repo repository.Repository) error {
	if existsError := service.dependencies.Repositories.Exists(repo); existsError != nil {
		return existsError
	}
	accounts, accountsError := service.currentAccounts(executionContext, repo)
	if accountsError != nil {
		return accountsError
	}
	for _, subject := range accounts {
		if revokeError := service.dependencies.Accounts.Revoke(executionContext, subject, repo); revokeError != nil {
			return revokeError
		}
	}
	if removalError := service.dependencies.Repositories.Remove(executionContext, repo); removalError != nil {
		return removalError
	}
	fmt.Fprintf(service.dependencies.Output, repositoryDestroyedTemplateConstant, repo.Name())
	return nil
}

// RenameRepository moves a repository to a new name while preserving its
// content and access list. Steps: allocate the target as a bare shell,
// migrate content and users onto it, then destroy the source. A migration
// failure destroys the just-created target and propagates the original
// error; the source stays untouched as the system of record.
func (service *Service) RenameRepository(executionContext context.Context, source repository.Repository, target repository.Repository) error {
	if existsError := service.dependencies.Repositories.Exists(source); existsError != nil {
		return existsError
	}
	if createError := service.dependencies.Repositories.Create(executionContext, target, repository.CreateOptions{InitOnly: true}); createError != nil {
		return createError
	}

	if migrationError := service.migrateContent(executionContext, source, target); migrationError != nil {
		if compensationError := service.DestroyRepository(executionContext, target); compensationError != nil {
			fmt.Fprintf(service.dependencies.Errors, compensationFailedTemplateConstant, target.Name(), compensationError)
		}
		return migrationError
	}

	return service.DestroyRepository(executionContext, source)
}

// migrateContent replaces the target's content wholesale with the source's,
// re-normalizes permissions, and re-grants every source user onto the target.
func (service *Service) migrateContent(executionContext context.Context, source repository.Repository, target repository.Repository) error {
	fileSystem := service.dependencies.FileSystem
	targetDirectory := service.dependencies.Repositories.Directory(target)

	targetEntries, readError := fileSystem.ReadDir(targetDirectory)
	if readError != nil {
		return readError
	}
	for _, targetEntry := range targetEntries {
		if removalError := fileSystem.RemoveAll(filepath.Join(targetDirectory, targetEntry.Name())); removalError != nil {
			return removalError
		}
	}

	if copyError := fileSystem.CopyTree(service.dependencies.Repositories.Directory(source), targetDirectory); copyError != nil {
		return copyError
	}
	if fixError := service.dependencies.Repositories.Fix(executionContext, target, false); fixError != nil {
		return fixError
	}

	accounts, accountsError := service.currentAccounts(executionContext, source)
	if accountsError != nil {
		return accountsError
	}
	for _, subject := range accounts {
		if grantError := service.dependencies.Accounts.Grant(executionContext, subject, target); grantError != nil {
			return grantError
		}
	}
	return nil
}

// SetDescription updates the repository description and regenerates every
// current user's catalog, since catalogs embed descriptions.
func (service *Service) SetDescription(executionContext context.Context, repo repository.Repository, description string) error {
	if descriptionError := service.dependencies.Repositories.SetDescription(repo, description); descriptionError != nil {
		return descriptionError
	}
	accounts, accountsError := service.currentAccounts(executionContext, repo)
	if accountsError != nil {
		return accountsError
	}
	for _, subject := range accounts {
		if catalogError := service.dependencies.Accounts.RefreshCatalog(executionContext, subject); catalogError != nil {
			return catalogError
		}
	}
	fmt.Fprintf(service.dependencies.Output, descriptionUpdatedTemplateConstant, repo.Name())
	return nil
}

// SetMaintainer flags a login as maintainer on the repository's metadata.
func (service *Service) SetMaintainer(executionContext context.Context, subject account.Account, repo repository.Repository) error {
	if existsError := service.dependencies.Accounts.Exists(executionContext, subject); existsError != nil {
		return existsError
	}
	if setError := service.dependencies.Repositories.SetMaintainer(executionContext, repo, subject.Login()); setError != nil {
		return setError
	}
	fmt.Fprintf(service.dependencies.Output, maintainerSetTemplateConstant, subject.Login(), repo.Name())
	return nil
}

// UnsetMaintainer clears a login's maintainer flag. The account does not
// need to exist; flags of removed users stay removable.
func (service *Service) UnsetMaintainer(executionContext context.Context, subject account.Account, repo repository.Repository) error {
	if unsetError := service.dependencies.Repositories.UnsetMaintainer(executionContext, repo, subject.Login()); unsetError != nil {
		return unsetError
	}
	fmt.Fprintf(service.dependencies.Output, maintainerUnsetTemplateConstant, subject.Login(), repo.Name())
	return nil
}
