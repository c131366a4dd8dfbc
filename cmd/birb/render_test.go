// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"birb-cli/internal/deps"
	"birb-cli/internal/engine"
	"birb-cli/internal/issue"
	"birb-cli/internal/linkfarm"
	"birb-cli/internal/nest"
	"birb-cli/internal/repo"
	"birb-cli/internal/seed"
)

func TestIssueFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"missing package", &repo.MissingPackageError{Name: "x"}, issue.MissingPackageId},
		{"invalid seed", &seed.InvalidSpecError{Name: "x", Missing: []string{"SOURCE"}}, issue.InvalidSeedId},
		{"dependency cycle", &deps.CycleError{Cycle: []string{"a", "b", "a"}}, issue.DependencyCycleId},
		{"source unavailable", &engine.SourceUnavailableError{Pkg: "x", Err: errors.New("gone")}, issue.SourceUnavailableId},
		{"build failed", &engine.BuildFailedError{Pkg: "x", Err: errors.New("boom")}, issue.BuildFailedId},
		{"test failed", &engine.TestFailedError{Pkg: "x", Err: errors.New("boom")}, issue.TestFailedId},
		{"link conflict", &linkfarm.ConflictError{Name: "x", Paths: []string{"/usr/bin/x"}}, issue.LinkConflictId},
		{"not installed", &nest.NotInstalledError{Name: "x"}, issue.NotInstalledId},
		{"protected declined", &engine.ProtectedDeclinedError{Pkg: "glibc"}, issue.ProtectedPackageId},
		{"lock held", &engine.LockHeldError{Path: "/tmp/birb.lock"}, issue.LockHeldId},
		{
			"wrapped dependency failure",
			&engine.DependencyFailedError{
				Pkg: "app",
				Dep: "lib",
				Err: &engine.BuildFailedError{Pkg: "lib", Err: errors.New("boom")},
			},
			issue.BuildFailedId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := issueFor(tt.err)
			if got == nil {
				t.Fatalf("issueFor(%v) = nil, want issue %d", tt.err, tt.want)
			}
			if got.Id() != tt.want {
				t.Errorf("issueFor(%v).Id() = %d, want %d", tt.err, got.Id(), tt.want)
			}
		})
	}
}

func TestIssueFor_UnknownError(t *testing.T) {
	t.Parallel()

	if got := issueFor(fmt.Errorf("plumbing: %w", errors.New("eio"))); got != nil {
		t.Errorf("issueFor(generic error) = %v, want nil", got)
	}
}

func TestReportResult_ConflictListsPaths(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	reportResult(&sb, engine.Result{
		Package:   "coreutils",
		Outcome:   engine.OutcomeAborted,
		Err:       errors.New("2 path(s) conflict"),
		Conflicts: []string{"/usr/bin/ls", "/usr/bin/cat"},
	})

	out := sb.String()
	for _, path := range []string{"/usr/bin/ls", "/usr/bin/cat"} {
		if !strings.Contains(out, path) {
			t.Errorf("output missing conflict path %s:\n%s", path, out)
		}
	}
}
