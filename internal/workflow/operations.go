package workflow

import (
	"context"
	"fmt"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/repository"
)

const dryRunStepTemplateConstant = "would run %s: %s\n"

// CreateRepositoryOperation provisions a repository.
type CreateRepositoryOperation struct {
	Repository  repository.Repository
	Description string
	InitOnly    bool
}

// Name identifies the operation in diagnostics.
func (operation *CreateRepositoryOperation) Name() string {
	return string(OperationTypeCreateRepository)
}

// Execute provisions the repository unless dry-run is active.
func (operation *CreateRepositoryOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Repository.Name())
		return nil
	}
	return environment.Repositories.Create(executionContext, operation.Repository, repository.CreateOptions{InitOnly: operation.InitOnly, Description: operation.Description})
}

// DestroyRepositoryOperation removes a repository with its access cascade.
type DestroyRepositoryOperation struct {
	Repository repository.Repository
}

// Name identifies the operation in diagnostics.
func (operation *DestroyRepositoryOperation) Name() string {
	return string(OperationTypeDestroyRepository)
}

// Execute runs the destroy cascade unless dry-run is active.
func (operation *DestroyRepositoryOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Repository.Name())
		return nil
	}
	return environment.Sagas.DestroyRepository(executionContext, operation.Repository)
}

// RenameRepositoryOperation moves a repository to a new name.
type RenameRepositoryOperation struct {
	Source repository.Repository
	Target repository.Repository
}

// Name identifies the operation in diagnostics.
func (operation *RenameRepositoryOperation) Name() string {
	return string(OperationTypeRenameRepository)
}

// Execute runs the rename saga unless dry-run is active.
func (operation *RenameRepositoryOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Source.Name())
		return nil
	}
	return environment.Sagas.RenameRepository(executionContext, operation.Source, operation.Target)
}

// FixRepositoryOperation re-normalizes permissions and ownership.
type FixRepositoryOperation struct {
	Repository repository.Repository
	Full       bool
}

// Name identifies the operation in diagnostics.
func (operation *FixRepositoryOperation) Name() string {
	return string(OperationTypeFixRepository)
}

// Execute normalizes the repository unless dry-run is active.
func (operation *FixRepositoryOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Repository.Name())
		return nil
	}
	return environment.Repositories.Fix(executionContext, operation.Repository, operation.Full)
}

// SetDescriptionOperation updates a repository description.
type SetDescriptionOperation struct {
	Repository  repository.Repository
	Description string
}

// Name identifies the operation in diagnostics.
func (operation *SetDescriptionOperation) Name() string {
	return string(OperationTypeSetDescription)
}

// Execute updates the description unless dry-run is active.
func (operation *SetDescriptionOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Repository.Name())
		return nil
	}
	return environment.Sagas.SetDescription(executionContext, operation.Repository, operation.Description)
}

// GrantAccessOperation adds a user to a repository's access list.
type GrantAccessOperation struct {
	Subject    account.Account
	Repository repository.Repository
}

// Name identifies the operation in diagnostics.
func (operation *GrantAccessOperation) Name() string {
	return string(OperationTypeGrantAccess)
}

// Execute grants access unless dry-run is active.
func (operation *GrantAccessOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Subject.Login())
		return nil
	}
	return environment.Accounts.Grant(executionContext, operation.Subject, operation.Repository)
}

// RevokeAccessOperation removes a user from a repository's access list.
type RevokeAccessOperation struct {
	Subject    account.Account
	Repository repository.Repository
}

// Name identifies the operation in diagnostics.
func (operation *RevokeAccessOperation) Name() string {
	return string(OperationTypeRevokeAccess)
}

// Execute revokes access unless dry-run is active.
func (operation *RevokeAccessOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Subject.Login())
		return nil
	}
	return environment.Accounts.Revoke(executionContext, operation.Subject, operation.Repository)
}

// ProtectBranchOperation flags a branch as protected.
type ProtectBranchOperation struct {
	Repository repository.Repository
	Branch     string
}

// Name identifies the operation in diagnostics.
func (operation *ProtectBranchOperation) Name() string {
	return string(OperationTypeProtectBranch)
}

// Execute protects the branch unless dry-run is active.
func (operation *ProtectBranchOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Branch)
		return nil
	}
	return environment.Repositories.Protect(executionContext, operation.Repository, operation.Branch)
}

// UnprotectBranchOperation clears a branch protection flag.
type UnprotectBranchOperation struct {
	Repository repository.Repository
	Branch     string
}

// Name identifies the operation in diagnostics.
func (operation *UnprotectBranchOperation) Name() string {
	return string(OperationTypeUnprotectBranch)
}

// Execute removes the protection flag unless dry-run is active.
func (operation *UnprotectBranchOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Branch)
		return nil
	}
	return environment.Repositories.Unprotect(executionContext, operation.Repository, operation.Branch)
}

// SetMaintainerOperation flags a user as maintainer of a repository.
type SetMaintainerOperation struct {
	Subject    account.Account
	Repository repository.Repository
}

// Name identifies the operation in diagnostics.
func (operation *SetMaintainerOperation) Name() string {
	return string(OperationTypeSetMaintainer)
}

// Execute sets the maintainer flag unless dry-run is active.
func (operation *SetMaintainerOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Subject.Login())
		return nil
	}
	return environment.Sagas.SetMaintainer(executionContext, operation.Subject, operation.Repository)
}

// UnsetMaintainerOperation clears a user's maintainer flag.
type UnsetMaintainerOperation struct {
	Subject    account.Account
	Repository repository.Repository
}

// Name identifies the operation in diagnostics.
func (operation *UnsetMaintainerOperation) Name() string {
	return string(OperationTypeUnsetMaintainer)
}

// Execute clears the maintainer flag unless dry-run is active.
func (operation *UnsetMaintainerOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		fmt.Fprintf(environment.Output, dryRunStepTemplateConstant, operation.Name(), operation.Subject.Login())
		return nil
	}
	return environment.Sagas.UnsetMaintainer(executionContext, operation.Subject, operation.Repository)
}
