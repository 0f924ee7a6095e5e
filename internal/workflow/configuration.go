package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configurationLoadErrorTemplateConstant       = "failed to load workflow configuration: %w"
	configurationParseErrorTemplateConstant      = "failed to parse workflow configuration: %w"
	configurationPathRequiredMessageConstant     = "workflow configuration path must be provided"
	configurationEmptyStepsMessageConstant       = "workflow configuration must define at least one step"
	configurationOperationMissingMessageConstant = "workflow step missing operation name"
)

// OperationType identifies supported workflow operations.
type OperationType string

// Supported workflow operations.
const (
	OperationTypeCreateRepository  OperationType = OperationType("create-repository")
	OperationTypeDestroyRepository OperationType = OperationType("destroy-repository")
	OperationTypeRenameRepository  OperationType = OperationType("rename-repository")
	OperationTypeFixRepository     OperationType = OperationType("fix-repository")
	OperationTypeSetDescription    OperationType = OperationType("set-description")
	OperationTypeGrantAccess       OperationType = OperationType("grant-access")
	OperationTypeRevokeAccess      OperationType = OperationType("revoke-access")
	OperationTypeProtectBranch     OperationType = OperationType("protect-branch")
	OperationTypeUnprotectBranch   OperationType = OperationType("unprotect-branch")
	OperationTypeSetMaintainer     OperationType = OperationType("set-maintainer")
	OperationTypeUnsetMaintainer   OperationType = OperationType("unset-maintainer")
)

// Configuration describes the ordered workflow steps loaded from YAML.
type Configuration struct {
	Steps []StepConfiguration `yaml:"steps"`
}

// StepConfiguration associates an operation type with declarative options.
type StepConfiguration struct {
	Operation OperationType  `yaml:"operation"`
	Options   map[string]any `yaml:"with"`
}

// LoadConfiguration reads the workflow definition from disk and performs
// basic validation. The step list may sit at the document root or under a
// top-level workflow key.
func LoadConfiguration(filePath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Configuration{}, errors.New(configurationPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Configuration{}, fmt.Errorf(configurationLoadErrorTemplateConstant, readError)
	}

	var configuration Configuration
	if unmarshalError := yaml.Unmarshal(contentBytes, &configuration); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(configurationParseErrorTemplateConstant, unmarshalError)
	}
	if len(configuration.Steps) == 0 {
		var wrapper struct {
			Workflow Configuration `yaml:"workflow"`
		}
		if nestedError := yaml.Unmarshal(contentBytes, &wrapper); nestedError == nil {
			configuration = wrapper.Workflow
		}
	}

	if len(configuration.Steps) == 0 {
		return Configuration{}, errors.New(configurationEmptyStepsMessageConstant)
	}
	for stepIndex := range configuration.Steps {
		trimmedOperation := strings.TrimSpace(string(configuration.Steps[stepIndex].Operation))
		if len(trimmedOperation) == 0 {
			return Configuration{}, errors.New(configurationOperationMissingMessageConstant)
		}
		configuration.Steps[stepIndex].Operation = OperationType(trimmedOperation)
	}

	return configuration, nil
}
