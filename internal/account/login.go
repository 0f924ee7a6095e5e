package account

import (
	"fmt"
	"strings"

	"github.com/gmgdev/gmg/internal/hosting"
)

const (
	emptyLoginMessageConstant             = "user login must not be empty"
	invalidLoginCharacterTemplateConstant = "user login must not contain %q"
	loginTooLongTemplateConstant          = "user login must not exceed %d characters"

	maximumLoginLengthConstant = 32
)

var forbiddenLoginCharacters = []string{"/", ":", " "}

// Account identifies a hosted user by OS login. Construction is pure;
// existence checks happen in the service.
type Account struct {
	login string
}

// ParseLogin validates a candidate login and returns the account value.
func ParseLogin(candidate string) (Account, error) {
	if len(candidate) == 0 {
		return Account{}, hosting.NewValidationError(emptyLoginMessageConstant)
	}
	for _, forbiddenCharacter := range forbiddenLoginCharacters {
		if strings.Contains(candidate, forbiddenCharacter) {
			return Account{}, hosting.NewValidationError(fmt.Sprintf(invalidLoginCharacterTemplateConstant, forbiddenCharacter))
		}
	}
	if len(candidate) > maximumLoginLengthConstant {
		return Account{}, hosting.NewValidationError(fmt.Sprintf(loginTooLongTemplateConstant, maximumLoginLengthConstant))
	}
	return Account{login: candidate}, nil
}

// Login returns the OS login name.
func (account Account) Login() string {
	return account.login
}
