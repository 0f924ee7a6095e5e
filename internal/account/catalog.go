package account

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	generatedEntryPrefixConstant = "repo."
	catalogURLTemplateConstant   = "repo.url=%s"
	catalogPathTemplateConstant  = "repo.path=%s"
	catalogDescTemplateConstant  = "repo.desc=%s"
	catalogLineSeparatorConstant = "\n"

	catalogFileMode = fs.FileMode(0o644)
)

// RefreshCatalog regenerates the account's catalog file from scratch: the
// global template minus any previously generated entries, plus one block per
// currently accessible repository. The result is written in a single pass so
// a reader never observes a partially updated catalog.
func (service *Service) RefreshCatalog(executionContext context.Context, account Account) error {
	accessibleRepositories, repositoriesError := service.Repositories(executionContext, account)
	if repositoriesError != nil {
		return repositoriesError
	}

	var catalogLines []string
	templateContent, templateError := service.dependencies.FileSystem.ReadFile(service.dependencies.Settings.CatalogTemplate)
	if templateError == nil {
		for _, templateLine := range strings.Split(string(templateContent), catalogLineSeparatorConstant) {
			if !strings.HasPrefix(templateLine, generatedEntryPrefixConstant) {
				catalogLines = append(catalogLines, templateLine)
			}
		}
	}

	for _, accessibleRepository := range accessibleRepositories {
		catalogLines = append(catalogLines, fmt.Sprintf(catalogURLTemplateConstant, accessibleRepository.Name()))
		catalogLines = append(catalogLines, fmt.Sprintf(catalogPathTemplateConstant, service.dependencies.Settings.RepositoryDirectory(accessibleRepository.Name())))
		descriptionText, descriptionPresent, descriptionError := service.dependencies.Repositories.Description(accessibleRepository)
		if descriptionError == nil && descriptionPresent {
			catalogLines = append(catalogLines, fmt.Sprintf(catalogDescTemplateConstant, descriptionText))
		}
	}
	catalogLines = append(catalogLines, "")

	catalogFilePath := service.dependencies.Settings.CatalogPath(account.Login())
	if directoryError := service.dependencies.FileSystem.MkdirAll(filepath.Dir(catalogFilePath), farmDirectoryMode); directoryError != nil {
		return directoryError
	}
	return service.dependencies.FileSystem.WriteFile(catalogFilePath, []byte(strings.Join(catalogLines, catalogLineSeparatorConstant)), catalogFileMode)
}
