// Package setup assembles the hosting service graph shared by every command:
// shell executor, git and identity services, and the repository, account, and
// access layers on top of them.
package setup

import (
	"io"

	"go.uber.org/zap"

	"github.com/gmgdev/gmg/internal/access"
	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/execshell"
	"github.com/gmgdev/gmg/internal/gitcmd"
	"github.com/gmgdev/gmg/internal/hostfs"
	"github.com/gmgdev/gmg/internal/hosting"
	"github.com/gmgdev/gmg/internal/identity"
	"github.com/gmgdev/gmg/internal/repository"
	"github.com/gmgdev/gmg/internal/ui"
)

// Options configures service graph construction.
type Options struct {
	Logger               *zap.Logger
	Settings             hosting.Settings
	Input                io.Reader
	Output               io.Writer
	Errors               io.Writer
	HumanReadableLogging bool
}

// Services bundles the fully wired hosting services.
type Services struct {
	Settings     hosting.Settings
	Executor     *execshell.ShellExecutor
	Git          *gitcmd.Service
	Identity     *identity.Service
	FileSystem   hostfs.FileSystem
	Repositories *repository.Service
	Accounts     *account.Service
	Access       *access.Service
}

// BuildServices validates the settings and wires the full service graph.
func BuildServices(options Options) (*Services, error) {
	if validationError := options.Settings.Validate(); validationError != nil {
		return nil, validationError
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var commandObserver execshell.CommandEventObserver
	if options.HumanReadableLogging {
		commandObserver = ui.NewConsoleCommandEventLogger(logger)
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), commandObserver)
	if executorError != nil {
		return nil, executorError
	}
	gitService, gitError := gitcmd.NewService(shellExecutor)
	if gitError != nil {
		return nil, gitError
	}
	identityService, identityError := identity.NewService(shellExecutor)
	if identityError != nil {
		return nil, identityError
	}

	fileSystem := hostfs.NewOSFileSystem()

	repositoryService, repositoryError := repository.NewService(repository.Dependencies{
		Settings:   options.Settings,
		FileSystem: fileSystem,
		Git:        gitService,
		Identity:   identityService,
		Output:     options.Output,
		Errors:     options.Errors,
	})
	if repositoryError != nil {
		return nil, repositoryError
	}

	accountService, accountError := account.NewService(account.Dependencies{
		Settings:     options.Settings,
		FileSystem:   fileSystem,
		Identity:     identityService,
		Repositories: repositoryService,
		Input:        options.Input,
		Output:       options.Output,
		Errors:       options.Errors,
	})
	if accountError != nil {
		return nil, accountError
	}

	accessService, accessError := access.NewService(access.Dependencies{
		Repositories: repositoryService,
		Accounts:     accountService,
		FileSystem:   fileSystem,
		Output:       options.Output,
		Errors:       options.Errors,
	})
	if accessError != nil {
		return nil, accessError
	}

	return &Services{
		Settings:     options.Settings,
		Executor:     shellExecutor,
		Git:          gitService,
		Identity:     identityService,
		FileSystem:   fileSystem,
		Repositories: repositoryService,
		Accounts:     accountService,
		Access:       accessService,
	}, nil
}
