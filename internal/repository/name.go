package repository

import (
	"strings"

	"github.com/gmgdev/gmg/internal/hosting"
)

const (
	maximumNameLengthConstant         = 30
	nameSegmentSeparatorConstant      = "/"
	reservedNameSuffixConstant        = ".git"
	nameEmptyMessageConstant          = "repository name can not be empty"
	nameLeadingSlashMessageConstant   = "repository name can not start with /"
	nameReservedSuffixMessageConstant = "repository name can not end with or contain .git in path segments"
	nameTooLongMessageConstant        = "repository name is longer than 30 chars"
)

// Repository is a validated reference to a hosted repository. It carries no
// cached state: every operation re-queries the authoritative stores.
type Repository struct {
	name string
}

// ParseName validates a candidate repository name. The check is pure: a
// rejected name causes no filesystem or identity-database access.
func ParseName(candidate string) (Repository, error) {
	if len(candidate) == 0 {
		return Repository{}, hosting.NewValidationError(nameEmptyMessageConstant)
	}
	if strings.HasPrefix(candidate, nameSegmentSeparatorConstant) {
		return Repository{}, hosting.NewValidationError(nameLeadingSlashMessageConstant)
	}
	for _, nameSegment := range strings.Split(candidate, nameSegmentSeparatorConstant) {
		if nameSegment == reservedNameSuffixConstant || strings.HasSuffix(nameSegment, reservedNameSuffixConstant) {
			return Repository{}, hosting.NewValidationError(nameReservedSuffixMessageConstant)
		}
	}
	if len(candidate) > maximumNameLengthConstant {
		return Repository{}, hosting.NewValidationError(nameTooLongMessageConstant)
	}
	return Repository{name: candidate}, nil
}

// Name returns the validated slash-segmented repository name.
func (repository Repository) Name() string {
	return repository.name
}

// ShortName returns the final path segment of the repository name.
func (repository Repository) ShortName() string {
	nameSegments := repository.Segments()
	return nameSegments[len(nameSegments)-1]
}

// Segments splits the repository name on its path separators.
func (repository Repository) Segments() []string {
	return strings.Split(repository.name, nameSegmentSeparatorConstant)
}
