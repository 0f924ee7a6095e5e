package hosting

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ToolVersion is stamped into every repository's metadata store at creation time.
const ToolVersion = "0.3.1"

const (
	repositoryDirectorySuffixConstant       = ".git"
	catalogFileSuffixConstant               = ".cgitrc"
	settingsValidationErrorTemplateConstant = "invalid hosting settings: %w"
)

// Settings describes the host deployment the engine operates on.
type Settings struct {
	// RepositoryRoot is the directory holding every bare repository.
	RepositoryRoot string `mapstructure:"repository_root" validate:"required,startswith=/"`
	// HomeRoot is the directory holding hosted account home directories.
	HomeRoot string `mapstructure:"home_root" validate:"required,startswith=/"`
	// GroupPrefix marks the OS groups representing repository access lists.
	GroupPrefix string `mapstructure:"group_prefix" validate:"required"`
	// ServiceAccount owns repository trees on disk.
	ServiceAccount string `mapstructure:"service_account" validate:"required"`
	// DefaultBranch names the branch seeded into new repositories.
	DefaultBranch string `mapstructure:"default_branch" validate:"required"`
	// ProtectedBranches are flagged as protected on every non-init-only create.
	ProtectedBranches []string `mapstructure:"protected_branches" validate:"min=1"`
	// RestrictedShell is the login shell of hosted accounts, resolved from PATH.
	RestrictedShell string `mapstructure:"restricted_shell" validate:"required"`
	// CatalogTemplate is the global browser configuration file used as a template.
	CatalogTemplate string `mapstructure:"catalog_template" validate:"required,startswith=/"`
	// CatalogDirectory holds generated per-user catalogs, relative to RepositoryRoot.
	CatalogDirectory string `mapstructure:"catalog_directory" validate:"required"`
}

// DefaultSettings returns the settings matching the reference deployment layout.
func DefaultSettings() Settings {
	return Settings{
		RepositoryRoot:    "/git",
		HomeRoot:          "/home",
		GroupPrefix:       "g_",
		ServiceAccount:    "git",
		DefaultBranch:     "main",
		ProtectedBranches: []string{"main"},
		RestrictedShell:   "git-shell",
		CatalogTemplate:   "/etc/cgitrc",
		CatalogDirectory:  ".config/cgit",
	}
}

// Validate checks the settings for structural problems before any command runs.
func (settings Settings) Validate() error {
	validationError := validator.New().Struct(settings)
	if validationError != nil {
		return fmt.Errorf(settingsValidationErrorTemplateConstant, validationError)
	}
	return nil
}

// RepositoryGroup derives the OS group representing a repository's access list.
func (settings Settings) RepositoryGroup(repositoryName string) string {
	return settings.GroupPrefix + repositoryName
}

// RepositoryName recovers a repository name from its OS group, reporting
// whether the group carries the hosting prefix at all.
func (settings Settings) RepositoryName(groupName string) (string, bool) {
	if !strings.HasPrefix(groupName, settings.GroupPrefix) {
		return "", false
	}
	return strings.TrimPrefix(groupName, settings.GroupPrefix), true
}

// RepositoryDirectory derives the on-disk bare repository directory for a name.
func (settings Settings) RepositoryDirectory(repositoryName string) string {
	return filepath.Join(settings.RepositoryRoot, repositoryName+repositoryDirectorySuffixConstant)
}

// HomeDirectory derives the home directory for a login.
func (settings Settings) HomeDirectory(login string) string {
	return filepath.Join(settings.HomeRoot, login)
}

// CatalogPath derives the generated catalog file path for a login.
func (settings Settings) CatalogPath(login string) string {
	return filepath.Join(settings.RepositoryRoot, settings.CatalogDirectory, login+catalogFileSuffixConstant)
}
