package repository_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmgdev/gmg/internal/hosting"
	"github.com/gmgdev/gmg/internal/repository"
)

func TestParseName(testInstance *testing.T) {
	testCases := []struct {
		name          string
		candidate     string
		expectFailure bool
	}{
		{name: "simple_name", candidate: "project"},
		{name: "nested_name", candidate: "team/project"},
		{name: "deeply_nested_name", candidate: "org/team/project"},
		{name: "empty_name_fails", candidate: "", expectFailure: true},
		{name: "absolute_name_fails", candidate: "/project", expectFailure: true},
		{name: "git_suffix_fails", candidate: "project.git", expectFailure: true},
		{name: "nested_git_suffix_fails", candidate: "team/project.git", expectFailure: true},
		{name: "overlong_name_fails", candidate: strings.Repeat("a", 31), expectFailure: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			parsedRepository, parseError := repository.ParseName(testCase.candidate)
			if testCase.expectFailure {
				require.Error(subtest, parseError)
				var validationError hosting.ValidationError
				require.ErrorAs(subtest, parseError, &validationError)
				return
			}
			require.NoError(subtest, parseError)
			require.Equal(subtest, testCase.candidate, parsedRepository.Name())
		})
	}
}

func TestRepositoryAccessors(testInstance *testing.T) {
	parsedRepository, parseError := repository.ParseName("org/team/project")
	require.NoError(testInstance, parseError)

	require.Equal(testInstance, "org/team/project", parsedRepository.Name())
	require.Equal(testInstance, "project", parsedRepository.ShortName())
	require.Equal(testInstance, []string{"org", "team", "project"}, parsedRepository.Segments())
}
