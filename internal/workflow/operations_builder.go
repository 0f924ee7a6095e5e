package workflow

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/gmgdev/gmg/internal/account"
	"github.com/gmgdev/gmg/internal/repository"
)

const (
	unsupportedOperationTemplateConstant    = "unsupported workflow operation: %s"
	optionsDecodeErrorTemplateConstant      = "invalid options for %s step: %w"
	repositoryOptionRequiredMessageConstant = "step requires a repository name"
	userOptionRequiredMessageConstant       = "step requires a user login"
	branchOptionRequiredMessageConstant     = "step requires a branch name"
	renameTargetRequiredMessageConstant     = "rename-repository step requires a target name"
)

type repositoryStepOptions struct {
	Repository  string `mapstructure:"repository"`
	Description string `mapstructure:"description"`
	InitOnly    bool   `mapstructure:"init_only"`
	Full        bool   `mapstructure:"full"`
}

type renameStepOptions struct {
	Repository string `mapstructure:"repository"`
	Target     string `mapstructure:"target"`
}

type accessStepOptions struct {
	Repository string `mapstructure:"repository"`
	User       string `mapstructure:"user"`
}

type branchStepOptions struct {
	Repository string `mapstructure:"repository"`
	Branch     string `mapstructure:"branch"`
}

// BuildOperations converts the declarative configuration into executable operations.
func BuildOperations(configuration Configuration) ([]Operation, error) {
	operations := make([]Operation, 0, len(configuration.Steps))
	for stepIndex := range configuration.Steps {
		operation, buildError := buildOperationFromStep(configuration.Steps[stepIndex])
		if buildError != nil {
			return nil, buildError
		}
		operations = append(operations, operation)
	}
	return operations, nil
}

func buildOperationFromStep(step StepConfiguration) (Operation, error) {
	switch step.Operation {
	case OperationTypeCreateRepository:
		return buildCreateRepositoryOperation(step)
	case OperationTypeDestroyRepository:
		return buildDestroyRepositoryOperation(step)
	case OperationTypeRenameRepository:
		return buildRenameRepositoryOperation(step)
	case OperationTypeFixRepository:
		return buildFixRepositoryOperation(step)
	case OperationTypeSetDescription:
		return buildSetDescriptionOperation(step)
	case OperationTypeGrantAccess, OperationTypeRevokeAccess, OperationTypeSetMaintainer, OperationTypeUnsetMaintainer:
		return buildAccessOperation(step)
	case OperationTypeProtectBranch, OperationTypeUnprotectBranch:
		return buildBranchOperation(step)
	default:
		return nil, fmt.Errorf(unsupportedOperationTemplateConstant, step.Operation)
	}
}

func decodeStepOptions(step StepConfiguration, target any) error {
	if decodeError := mapstructure.Decode(step.Options, target); decodeError != nil {
		return fmt.Errorf(optionsDecodeErrorTemplateConstant, step.Operation, decodeError)
	}
	return nil
}

func parseStepRepository(candidate string) (repository.Repository, error) {
	if len(candidate) == 0 {
		return repository.Repository{}, errors.New(repositoryOptionRequiredMessageConstant)
	}
	return repository.ParseName(candidate)
}

func parseStepAccount(candidate string) (account.Account, error) {
	if len(candidate) == 0 {
		return account.Account{}, errors.New(userOptionRequiredMessageConstant)
	}
	return account.ParseLogin(candidate)
}

func buildCreateRepositoryOperation(step StepConfiguration) (Operation, error) {
	var options repositoryStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	parsedRepository, parseError := parseStepRepository(options.Repository)
	if parseError != nil {
		return nil, parseError
	}
	return &CreateRepositoryOperation{Repository: parsedRepository, Description: options.Description, InitOnly: options.InitOnly}, nil
}

func buildDestroyRepositoryOperation(step StepConfiguration) (Operation, error) {
	var options repositoryStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	parsedRepository, parseError := parseStepRepository(options.Repository)
	if parseError != nil {
		return nil, parseError
	}
	return &DestroyRepositoryOperation{Repository: parsedRepository}, nil
}

func buildRenameRepositoryOperation(step StepConfiguration) (Operation, error) {
	var options renameStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	sourceRepository, sourceError := parseStepRepository(options.Repository)
	if sourceError != nil {
		return nil, sourceError
	}
	if len(options.Target) == 0 {
		return nil, errors.New(renameTargetRequiredMessageConstant)
	}
	targetRepository, targetError := repository.ParseName(options.Target)
	if targetError != nil {
		return nil, targetError
	}
	return &RenameRepositoryOperation{Source: sourceRepository, Target: targetRepository}, nil
}

func buildFixRepositoryOperation(step StepConfiguration) (Operation, error) {
	var options repositoryStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	parsedRepository, parseError := parseStepRepository(options.Repository)
	if parseError != nil {
		return nil, parseError
	}
	return &FixRepositoryOperation{Repository: parsedRepository, Full: options.Full}, nil
}

func buildSetDescriptionOperation(step StepConfiguration) (Operation, error) {
	var options repositoryStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	parsedRepository, parseError := parseStepRepository(options.Repository)
	if parseError != nil {
		return nil, parseError
	}
	return &SetDescriptionOperation{Repository: parsedRepository, Description: options.Description}, nil
}

func buildAccessOperation(step StepConfiguration) (Operation, error) {
	var options accessStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	parsedRepository, repositoryError := parseStepRepository(options.Repository)
	if repositoryError != nil {
		return nil, repositoryError
	}
	parsedAccount, accountError := parseStepAccount(options.User)
	if accountError != nil {
		return nil, accountError
	}
	switch step.Operation {
	case OperationTypeGrantAccess:
		return &GrantAccessOperation{Subject: parsedAccount, Repository: parsedRepository}, nil
	case OperationTypeRevokeAccess:
		return &RevokeAccessOperation{Subject: parsedAccount, Repository: parsedRepository}, nil
	case OperationTypeSetMaintainer:
		return &SetMaintainerOperation{Subject: parsedAccount, Repository: parsedRepository}, nil
	default:
		return &UnsetMaintainerOperation{Subject: parsedAccount, Repository: parsedRepository}, nil
	}
}

func buildBranchOperation(step StepConfiguration) (Operation, error) {
	var options branchStepOptions
	if decodeError := decodeStepOptions(step, &options); decodeError != nil {
		return nil, decodeError
	}
	parsedRepository, parseError := parseStepRepository(options.Repository)
	if parseError != nil {
		return nil, parseError
	}
	if len(options.Branch) == 0 {
		return nil, errors.New(branchOptionRequiredMessageConstant)
	}
	if step.Operation == OperationTypeProtectBranch {
		return &ProtectBranchOperation{Repository: parsedRepository, Branch: options.Branch}, nil
	}
	return &UnprotectBranchOperation{Repository: parsedRepository, Branch: options.Branch}, nil
}
