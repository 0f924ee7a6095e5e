package hosting_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmgdev/gmg/internal/hosting"
)

func TestSettingsValidate(testInstance *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(settings *hosting.Settings)
		expectFailure bool
	}{
		{
			name:   "defaults_pass",
			mutate: func(settings *hosting.Settings) {},
		},
		{
			name: "relative_repository_root_fails",
			mutate: func(settings *hosting.Settings) {
				settings.RepositoryRoot = "git"
			},
			expectFailure: true,
		},
		{
			name: "missing_group_prefix_fails",
			mutate: func(settings *hosting.Settings) {
				settings.GroupPrefix = ""
			},
			expectFailure: true,
		},
		{
			name: "empty_protected_branches_fails",
			mutate: func(settings *hosting.Settings) {
				settings.ProtectedBranches = nil
			},
			expectFailure: true,
		},
		{
			name: "relative_catalog_template_fails",
			mutate: func(settings *hosting.Settings) {
				settings.CatalogTemplate = "etc/cgitrc"
			},
			expectFailure: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			settings := hosting.DefaultSettings()
			testCase.mutate(&settings)

			validationError := settings.Validate()
			if testCase.expectFailure {
				require.Error(subtest, validationError)
				return
			}
			require.NoError(subtest, validationError)
		})
	}
}

func TestSettingsDerivations(testInstance *testing.T) {
	settings := hosting.DefaultSettings()

	require.Equal(testInstance, "g_team/project", settings.RepositoryGroup("team/project"))
	require.Equal(testInstance, "/git/team/project.git", settings.RepositoryDirectory("team/project"))
	require.Equal(testInstance, "/home/alice", settings.HomeDirectory("alice"))
	require.Equal(testInstance, "/git/.config/cgit/alice.cgitrc", settings.CatalogPath("alice"))

	repositoryName, matched := settings.RepositoryName("g_project")
	require.True(testInstance, matched)
	require.Equal(testInstance, "project", repositoryName)

	_, matched = settings.RepositoryName("wheel")
	require.False(testInstance, matched)
}

func TestEntityErrorMatchesSentinel(testInstance *testing.T) {
	wrappedError := hosting.EntityError(hosting.ErrRepositoryNotFound, "team/project")

	require.True(testInstance, errors.Is(wrappedError, hosting.ErrRepositoryNotFound))
	require.Contains(testInstance, wrappedError.Error(), "team/project")
}
