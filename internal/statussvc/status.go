// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package statussvc resolves the latest deployment of each environment.
//
// Each environment takes two calls: the newest build of the environment's
// deployment configuration, then that build's detail. A failure in either
// call marks only that environment as failed.
package statussvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confighub/env-status/pkg/teamcity"
)

// FinishLayout formats finish timestamps in the report.
const FinishLayout = "2006-01-02 15:04:05"

// Unfinished is shown in place of a finish time for a build still running.
const Unfinished = "----------"

// ErrNoTriggeringUser is returned for builds not started by a user.
var ErrNoTriggeringUser = errors.New("build has no triggering user")

// DeploymentStatus is the outcome for one environment. Err is set for a
// failed lookup, in which case the other fields besides Environment are
// empty.
type DeploymentStatus struct {
	Environment string
	BuildID     int64
	DeployedBy  string
	FinishDate  *time.Time
	State       string
	Status      string
	Branch      string
	WebURL      string
	Err         error
}

// Failed reports whether the lookup for this environment failed.
func (s DeploymentStatus) Failed() bool {
	return s.Err != nil
}

// FormatFinishDate renders t in UTC, or the Unfinished placeholder for nil.
func FormatFinishDate(t *time.Time) string {
	if t == nil {
		return Unfinished
	}
	return t.UTC().Format(FinishLayout)
}

// BuildSource is the subset of the TeamCity client the fetcher needs.
type BuildSource interface {
	LatestBuild(ctx context.Context, buildType string) (*teamcity.BuildSummary, error)
	Build(ctx context.Context, id int64) (*teamcity.Build, error)
}

// Observer is told about progress as environments are fetched.
type Observer interface {
	// Fetching is called before the first request for env; i is 1-based.
	Fetching(i, total int, env string)
	// Failed is called as soon as env's lookup fails.
	Failed(env string, err error)
	// Done is called once after the last environment.
	Done()
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) Fetching(int, int, string) {}
func (NopObserver) Failed(string, error)      {}
func (NopObserver) Done()                     {}

// Fetcher looks up deployment status per environment.
type Fetcher struct {
	source    BuildSource
	buildType string
}

// NewFetcher creates a fetcher. buildTypeTemplate is expanded with each
// environment name; empty selects teamcity.DefaultBuildTypeTemplate.
func NewFetcher(source BuildSource, buildTypeTemplate string) *Fetcher {
	return &Fetcher{
		source:    source,
		buildType: buildTypeTemplate,
	}
}

// Fetch resolves env. Failures are carried in DeploymentStatus.Err; the
// record always names env.
func (f *Fetcher) Fetch(ctx context.Context, env string) DeploymentStatus {
	status := DeploymentStatus{Environment: env}

	summary, err := f.source.LatestBuild(ctx, teamcity.BuildTypeID(f.buildType, env))
	if err != nil {
		status.Err = fmt.Errorf("latest build: %w", err)
		return status
	}

	build, err := f.source.Build(ctx, summary.ID)
	if err != nil {
		status.Err = fmt.Errorf("build %d: %w", summary.ID, err)
		return status
	}

	user, ok := build.TriggeredBy()
	if !ok {
		status.Err = fmt.Errorf("build %d: %w", summary.ID, ErrNoTriggeringUser)
		return status
	}
	finished, err := build.Finished()
	if err != nil {
		status.Err = fmt.Errorf("build %d finish date: %w", summary.ID, err)
		return status
	}

	status.BuildID = summary.ID
	status.DeployedBy = user
	status.FinishDate = finished
	status.State = build.State
	status.Status = build.Status
	status.Branch = build.BranchName
	status.WebURL = build.WebURL
	return status
}

// FetchAll resolves envs one at a time, in order. The result has exactly
// one entry per environment in the same order, whatever fails.
func (f *Fetcher) FetchAll(ctx context.Context, envs []string, obs Observer) []DeploymentStatus {
	if obs == nil {
		obs = NopObserver{}
	}

	results := make([]DeploymentStatus, 0, len(envs))
	for i, env := range envs {
		obs.Fetching(i+1, len(envs), env)

		var status DeploymentStatus
		if err := ctx.Err(); err != nil {
			status = DeploymentStatus{Environment: env, Err: err}
		} else {
			status = f.Fetch(ctx, env)
		}
		if status.Err != nil {
			obs.Failed(env, status.Err)
		}
		results = append(results, status)
	}
	obs.Done()

	return results
}
