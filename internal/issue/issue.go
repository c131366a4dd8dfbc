// SPDX-License-Identifier: MPL-2.0

// Package issue maps transaction failures to actionable operator guidance.
// Each issue is a short markdown document rendered in the terminal when a
// transaction aborts, telling the operator what broke and what to try.
package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	MissingPackageId Id = iota + 1
	InvalidSeedId
	DependencyCycleId
	SourceUnavailableId
	BuildFailedId
	TestFailedId
	LinkConflictId
	NotInstalledId
	ProtectedPackageId
	LockHeldId
)

type MarkdownMsg string

type Issue struct {
	id    Id          // ID used to look up the issue
	mdMsg MarkdownMsg // Markdown text that will be rendered
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	missingPackageIssue = &Issue{
		id: MissingPackageId,
		mdMsg: `
# Package not found!

No configured repository contains a seed for the requested package.

## Things you can try:
- Check for typos in the package name
- List your repositories and their priority order:
~~~
$ birb sources
~~~
- Sync your repository checkouts and retry
- Add the repository that carries the package to sources.toml`,
	}

	invalidSeedIssue = &Issue{
		id: InvalidSeedId,
		mdMsg: `
# Invalid seed!

The package's seed is missing one of its required fields
(NAME, SOURCE or CHECKSUM). birb refuses to install from an
incomplete declaration.

## Things you can try:
- Inspect the seed file under the repository path
- Sync the repository; the seed may be fixed upstream
- Report the broken seed to the repository maintainer`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The dependency declarations form a loop, so no safe install order
exists. The cycle members are listed in the error above.

## Things you can try:
- Inspect the DEPS line of each seed in the cycle
- Remove or restructure the circular declaration
- Report the cycle to the repository maintainer`,
	}

	sourceUnavailableIssue = &Issue{
		id: SourceUnavailableId,
		mdMsg: `
# Source unavailable!

The package's source archive is missing from the distfiles
directory, or its checksum does not match the seed.

## Things you can try:
- Download the archive named by the seed's SOURCE into the
  distfiles directory
- Re-download if the checksum mismatches; the file may be truncated
- Verify the seed's CHECKSUM is current for that archive`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

A build phase of the recipe exited with an error. The staging tree
is kept for inspection; nothing was linked or registered.

## Things you can try:
- Re-run with --verbose to see the full recipe output
- Inspect the staging tree and the build directory
- Check that the build-time dependencies are actually installed`,
	}

	testFailedIssue = &Issue{
		id: TestFailedId,
		mdMsg: `
# Tests failed!

The package's test phase failed, so the install was aborted before
anything reached the live filesystem.

## Things you can try:
- Re-run with --verbose and inspect the test output
- Install without --tests if the failure is known-benign upstream`,
	}

	linkConflictIssue = &Issue{
		id: LinkConflictId,
		mdMsg: `
# Link conflicts!

Some live paths this package would own already exist and do not
belong to it. Nothing was linked; the conflicting paths are listed
in the error above.

## Things you can try:
- Inspect each conflicting path and decide who should own it
- Move or delete paths you placed there manually
- Re-run with --overwrite to let birb delete the conflicts`,
	}

	notInstalledIssue = &Issue{
		id: NotInstalledId,
		mdMsg: `
# Package not installed!

The nest has no entry for the requested package, so there is
nothing to uninstall.

## Things you can try:
- List the installed packages:
~~~
$ birb list
~~~
- Check for typos in the package name`,
	}

	protectedPackageIssue = &Issue{
		id: ProtectedPackageId,
		mdMsg: `
# Protected package!

This package is flagged important: removing it is very likely to
break the system. The uninstall requires typing the package name
at the prompt; it cannot be bypassed with --yes.`,
	}

	lockHeldIssue = &Issue{
		id: LockHeldId,
		mdMsg: `
# Another birb is running!

The transaction lock is held by another process. Concurrent
transactions would corrupt the nest and the link farm, so this one
stopped before touching anything.

## Things you can try:
- Wait for the other birb invocation to finish and re-run
- Find the holder with: fuser -v on the lock file named above`,
	}

	issues = map[Id]*Issue{
		missingPackageIssue.Id():    missingPackageIssue,
		invalidSeedIssue.Id():       invalidSeedIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		sourceUnavailableIssue.Id(): sourceUnavailableIssue,
		buildFailedIssue.Id():       buildFailedIssue,
		testFailedIssue.Id():        testFailedIssue,
		linkConflictIssue.Id():      linkConflictIssue,
		notInstalledIssue.Id():      notInstalledIssue,
		protectedPackageIssue.Id():  protectedPackageIssue,
		lockHeldIssue.Id():          lockHeldIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
