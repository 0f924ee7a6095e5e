package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	branchProtectedKeyTemplateConstant     = "hooks.branch.%s.protected"
	branchTriggerURLKeyTemplateConstant    = "hooks.branch.%s.rci.url"
	branchTriggerSecretKeyTemplateConstant = "hooks.branch.%s.rci.secret"
	userMaintainerKeyTemplateConstant      = "hooks.user.%s.maintainer"
	versionKeyConstant                     = "gmg.version"
	denyNonFastForwardsKeyConstant         = "receive.denyNonFastForwards"
	branchHookKeyPrefixConstant            = "hooks.branch."
	userHookKeyPrefixConstant              = "hooks.user."
	protectedKeySuffixConstant             = ".protected"
	triggerURLKeySuffixConstant            = ".rci.url"
	triggerSecretKeySuffixConstant         = ".rci.secret"
	maintainerKeySuffixConstant            = ".maintainer"
	enabledFlagValueConstant               = "true"
)

// Trigger holds the per-branch external build trigger configuration.
type Trigger struct {
	URL    string
	Secret string
}

// Metadata is the typed view of a repository's key/value metadata store.
// String keys exist only at the storage boundary; the rest of the engine
// works with this structure.
type Metadata struct {
	Version           string
	ProtectedBranches []string
	Maintainers       []string
	Triggers          map[string]Trigger
}

// TriggerBranches returns the branches carrying trigger configuration, sorted.
func (metadata Metadata) TriggerBranches() []string {
	triggerBranches := lo.Keys(metadata.Triggers)
	sort.Strings(triggerBranches)
	return triggerBranches
}

func branchProtectedKey(branchName string) string {
	return fmt.Sprintf(branchProtectedKeyTemplateConstant, branchName)
}

func branchTriggerURLKey(branchName string) string {
	return fmt.Sprintf(branchTriggerURLKeyTemplateConstant, branchName)
}

func branchTriggerSecretKey(branchName string) string {
	return fmt.Sprintf(branchTriggerSecretKeyTemplateConstant, branchName)
}

func userMaintainerKey(login string) string {
	return fmt.Sprintf(userMaintainerKeyTemplateConstant, login)
}

// parseMetadata recovers the typed metadata view from raw configuration entries.
func parseMetadata(configurationEntries map[string]string) Metadata {
	metadata := Metadata{
		Version:  configurationEntries[versionKeyConstant],
		Triggers: make(map[string]Trigger),
	}

	for entryKey, entryValue := range configurationEntries {
		switch {
		case strings.HasPrefix(entryKey, branchHookKeyPrefixConstant):
			branchKey := strings.TrimPrefix(entryKey, branchHookKeyPrefixConstant)
			switch {
			case strings.HasSuffix(branchKey, protectedKeySuffixConstant):
				if entryValue == enabledFlagValueConstant {
					branchName := strings.TrimSuffix(branchKey, protectedKeySuffixConstant)
					metadata.ProtectedBranches = append(metadata.ProtectedBranches, branchName)
				}
			case strings.HasSuffix(branchKey, triggerURLKeySuffixConstant):
				branchName := strings.TrimSuffix(branchKey, triggerURLKeySuffixConstant)
				branchTrigger := metadata.Triggers[branchName]
				branchTrigger.URL = entryValue
				metadata.Triggers[branchName] = branchTrigger
			case strings.HasSuffix(branchKey, triggerSecretKeySuffixConstant):
				branchName := strings.TrimSuffix(branchKey, triggerSecretKeySuffixConstant)
				branchTrigger := metadata.Triggers[branchName]
				branchTrigger.Secret = entryValue
				metadata.Triggers[branchName] = branchTrigger
			}
		case strings.HasPrefix(entryKey, userHookKeyPrefixConstant):
			userKey := strings.TrimPrefix(entryKey, userHookKeyPrefixConstant)
			if strings.HasSuffix(userKey, maintainerKeySuffixConstant) && entryValue == enabledFlagValueConstant {
				metadata.Maintainers = append(metadata.Maintainers, strings.TrimSuffix(userKey, maintainerKeySuffixConstant))
			}
		}
	}

	sort.Strings(metadata.ProtectedBranches)
	sort.Strings(metadata.Maintainers)
	return metadata
}
