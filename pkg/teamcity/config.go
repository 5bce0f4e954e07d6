package teamcity

import (
	"fmt"
	"strings"
)

// Endpoints and defaults for the TeamCity REST API.

const (
	// DefaultBaseURL is the build server queried when none is configured.
	DefaultBaseURL = "https://buildserver.labs.intellij.net"

	// BuildsPath lists builds and, with an id locator, fetches one.
	BuildsPath = "/app/rest/builds"

	// DefaultBuildTypeTemplate expands an environment name into the
	// one-click deployment build configuration for that environment.
	DefaultBuildTypeTemplate = "ItDeployments_CRMext_ECSv2_Nonprod_%s_OneClickDeployment"
)

// BuildTypeID expands template with env. A template without a verb is
// used as a prefix.
func BuildTypeID(template, env string) string {
	if template == "" {
		template = DefaultBuildTypeTemplate
	}
	if !strings.Contains(template, "%s") {
		return template + env
	}
	return fmt.Sprintf(template, env)
}

// LatestBuildLocator selects the newest build of buildType, including
// builds hidden by the default filter (personal, canceled, failed to start).
func LatestBuildLocator(buildType string) string {
	return fmt.Sprintf("buildType:%s,count:1,defaultFilter:false", buildType)
}

// TokenHelpURL documents how to create an access token.
func TokenHelpURL() string {
	return "https://www.jetbrains.com/help/teamcity/managing-your-user-account.html"
}
