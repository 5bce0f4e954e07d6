package teamcity

import (
	"fmt"
	"strings"
	"time"
)

// BuildSummary is one entry of a builds listing.
type BuildSummary struct {
	ID          int64  `json:"id"`
	BuildTypeID string `json:"buildTypeId,omitempty"`
	Number      string `json:"number,omitempty"`
	Status      string `json:"status,omitempty"`
	State       string `json:"state,omitempty"`
	BranchName  string `json:"branchName,omitempty"`
	WebURL      string `json:"webUrl,omitempty"`
}

// buildList is the envelope returned by GET /app/rest/builds.
type buildList struct {
	Count int            `json:"count"`
	Build []BuildSummary `json:"build"`
}

// Build is the detail view of a single build.
type Build struct {
	ID          int64      `json:"id"`
	BuildTypeID string     `json:"buildTypeId,omitempty"`
	Number      string     `json:"number,omitempty"`
	Status      string     `json:"status,omitempty"` // SUCCESS, FAILURE, UNKNOWN
	State       string     `json:"state,omitempty"`  // queued, running, finished
	StatusText  string     `json:"statusText,omitempty"`
	BranchName  string     `json:"branchName,omitempty"`
	WebURL      string     `json:"webUrl,omitempty"`
	QueuedDate  string     `json:"queuedDate,omitempty"`
	StartDate   string     `json:"startDate,omitempty"`
	FinishDate  string     `json:"finishDate,omitempty"`
	Triggered   *Triggered `json:"triggered,omitempty"`
}

// Triggered describes what started a build.
type Triggered struct {
	Type string `json:"type,omitempty"`
	Date string `json:"date,omitempty"`
	User *User  `json:"user,omitempty"`
}

// User is a TeamCity account.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// TriggeredBy returns the display name of the user who started the build.
// Builds started by a VCS trigger or schedule have no user.
func (b *Build) TriggeredBy() (string, bool) {
	if b.Triggered == nil || b.Triggered.User == nil {
		return "", false
	}
	name := b.Triggered.User.Name
	if name == "" {
		name = b.Triggered.User.Username
	}
	return name, name != ""
}

// Finished returns the finish time, or nil for a build that has not
// finished yet.
func (b *Build) Finished() (*time.Time, error) {
	if b.FinishDate == "" {
		return nil, nil
	}
	t, err := ParseTime(b.FinishDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	"20060102T150405-0700", // REST API default
	time.RFC3339,
}

// ParseTime parses a TeamCity timestamp. Both the compact REST form
// (20240102T030405+0000) and RFC 3339 are accepted.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
