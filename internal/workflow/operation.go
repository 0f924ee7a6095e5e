package workflow

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/repository"
)

// Operation coordinates a single workflow step.
type Operation interface {
	Name() string
	Execute(executionContext context.Context, environment *Environment) error
}

// RepositoryOperations lists the repository mutations workflow steps drive.
type RepositoryOperations interface {
	Create(executionContext context.Context, repo repository.Repository, options repository.CreateOptions) error
	Fix(executionContext context.Context, repo repository.Repository, full bool) error
	Protect(executionContext context.Context, repo repository.Repository, branchName string) error
	Unprotect(executionContext context.Context, repo repository.Repository, branchName string) error
}

// AccountOperations lists the access-edge mutations workflow steps drive.
type AccountOperations interface {
	Grant(executionContext context.Context, subject account.Account, repo repository.Repository) error
	Revoke(executionContext context.Context, subject account.Account, repo repository.Repository) error
}

// SagaOperations lists the cross-entity sequences workflow steps drive.
type SagaOperations interface {
	DestroyRepository(executionContext context.Context, repo repository.Repository) error
	RenameRepository(executionContext context.Context, source repository.Repository, target repository.Repository) error
	SetDescription(executionContext context.Context, repo repository.Repository, description string) error
	SetMaintainer(executionContext context.Context, subject account.Account, repo repository.Repository) error
	UnsetMaintainer(executionContext context.Context, subject account.Account, repo repository.Repository) error
}

// Environment exposes shared dependencies for workflow operations.
type Environment struct {
	Repositories RepositoryOperations
	Accounts     AccountOperations
	Sagas        SagaOperations
	Logger       *zap.Logger
	Output       io.Writer
	Errors       io.Writer
	DryRun       bool
}
