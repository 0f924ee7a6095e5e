package repository

import (
	"context"
	"fmt"
	"strings"
)

const triggerEndpointTemplateConstant = "%s/job/%s/trigger"

// SetTrigger registers a build trigger for a branch and returns the stored
// URL: the job's trigger endpoint derived from the server base URL and job
// name.
func (service *Service) SetTrigger(executionContext context.Context, repository Repository, branchName string, serverURL string, jobName string, secret string) (string, error) {
	triggerURL := fmt.Sprintf(triggerEndpointTemplateConstant, strings.TrimRight(serverURL, "/"), jobName)
	if urlError := service.SetOption(executionContext, repository, branchTriggerURLKey(branchName), triggerURL); urlError != nil {
		return "", urlError
	}
	if secretError := service.SetOption(executionContext, repository, branchTriggerSecretKey(branchName), secret); secretError != nil {
		return "", secretError
	}
	return triggerURL, nil
}

// UnsetTrigger removes a branch's build trigger registration.
func (service *Service) UnsetTrigger(executionContext context.Context, repository Repository, branchName string) error {
	if urlError := service.UnsetOption(executionContext, repository, branchTriggerURLKey(branchName)); urlError != nil {
		return urlError
	}
	return service.UnsetOption(executionContext, repository, branchTriggerSecretKey(branchName))
}
