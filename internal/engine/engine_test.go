// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"birb-cli/internal/deps"
	"birb-cli/internal/fakeroot"
	"birb-cli/internal/linkfarm"
	"birb-cli/internal/nest"
	"birb-cli/internal/repo"
	"birb-cli/internal/seed"

	"github.com/charmbracelet/log"
)

type fakeBuilder struct {
	files   map[string][]string // package -> relative paths written on build
	fail    map[string]error
	testErr map[string]error
	built   []string
	tested  []string
}

func (b *fakeBuilder) Build(_ context.Context, sd *seed.File, stagingDir string) error {
	b.built = append(b.built, sd.Spec.Name)
	if err := b.fail[sd.Spec.Name]; err != nil {
		return err
	}
	for _, rel := range b.files[sd.Spec.Name] {
		path := filepath.Join(stagingDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(sd.Spec.Name), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBuilder) Test(_ context.Context, sd *seed.File, _ string) error {
	b.tested = append(b.tested, sd.Spec.Name)
	return b.testErr[sd.Spec.Name]
}

type fakeSource struct {
	err map[string]error
}

func (s *fakeSource) Ensure(sd *seed.Spec) error {
	return s.err[sd.Name]
}

type fakeHooks struct {
	fontRefreshes int
	pipRemovals   []string
}

func (h *fakeHooks) RefreshFontCache(context.Context) error {
	h.fontRefreshes++
	return nil
}

func (h *fakeHooks) RemovePythonPackage(_ context.Context, name string) error {
	h.pipRemovals = append(h.pipRemovals, name)
	return nil
}

// fakeConfirm answers prompts from a scripted queue; an exhausted queue
// answers yes, so tests only script the prompts they care about.
type fakeConfirm struct {
	answers      []bool
	typedAnswers []bool
	prompts      []string
	typedPrompts []string
}

func (c *fakeConfirm) Confirm(question string) (bool, error) {
	c.prompts = append(c.prompts, question)
	if len(c.answers) == 0 {
		return true, nil
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, nil
}

func (c *fakeConfirm) ConfirmTyped(question, _ string) (bool, error) {
	c.typedPrompts = append(c.typedPrompts, question)
	if len(c.typedAnswers) == 0 {
		return true, nil
	}
	a := c.typedAnswers[0]
	c.typedAnswers = c.typedAnswers[1:]
	return a, nil
}

type world struct {
	tx       *Transaction
	repoDir  string
	liveRoot string
	builder  *fakeBuilder
	source   *fakeSource
	hooks    *fakeHooks
	confirm  *fakeConfirm
}

func newWorld(t *testing.T) *world {
	t.Helper()
	base := t.TempDir()
	repoDir := filepath.Join(base, "repo")
	liveRoot := filepath.Join(base, "live")
	for _, d := range []string{repoDir, liveRoot} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	reg, err := nest.Open(filepath.Join(base, "nest"))
	if err != nil {
		t.Fatalf("nest.Open() error: %v", err)
	}

	sources := repo.Set{{Name: "test", Path: repoDir}}
	store := fakeroot.Store{Root: filepath.Join(base, "fakeroot")}

	w := &world{
		repoDir:  repoDir,
		liveRoot: liveRoot,
		builder:  &fakeBuilder{files: map[string][]string{}, fail: map[string]error{}, testErr: map[string]error{}},
		source:   &fakeSource{err: map[string]error{}},
		hooks:    &fakeHooks{},
		confirm:  &fakeConfirm{},
	}
	w.tx = &Transaction{
		Sources:  sources,
		Nest:     reg,
		Store:    store,
		Farm:     linkfarm.Farm{Store: store, LiveRoot: liveRoot},
		Resolver: deps.NewResolver(sources.Load),
		Builder:  w.builder,
		Source:   w.source,
		Hooks:    w.hooks,
		Confirm:  w.confirm,
		Logger:   log.New(io.Discard),
	}
	return w
}

func (w *world) writeSeed(t *testing.T, name, depList, flags string) {
	t.Helper()
	dir := filepath.Join(w.repoDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := fmt.Sprintf(`NAME=%q
VERSION="1.0"
SOURCE="https://example.invalid/%s-1.0.tar.gz"
CHECKSUM="deadbeef"
DEPS=%q
FLAGS=%q
`, name, name, depList, flags)
	if err := os.WriteFile(filepath.Join(dir, "seed.sh"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// binPackage declares a seed and makes the fake builder stage usr/bin/<name>.
func (w *world) binPackage(t *testing.T, name, depList, flags string) {
	t.Helper()
	w.writeSeed(t, name, depList, flags)
	w.builder.files[name] = []string{filepath.Join("usr", "bin", name)}
}

func (w *world) livePath(rel string) string {
	return filepath.Join(w.liveRoot, rel)
}

func TestInstall_FreshWithDependencies(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "shell", "readline", "")
	w.binPackage(t, "readline", "ncurses", "")
	w.binPackage(t, "ncurses", "", "")

	res := w.tx.Install(context.Background(), "shell")

	if res.Outcome != OutcomeInstalled {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeInstalled)
	}
	wantBuilt := []string{"ncurses", "readline", "shell"}
	if !reflect.DeepEqual(w.builder.built, wantBuilt) {
		t.Errorf("build order = %v, want %v", w.builder.built, wantBuilt)
	}
	if got := w.tx.Nest.Names(); !reflect.DeepEqual(got, wantBuilt) {
		t.Errorf("registry = %v, want %v", got, wantBuilt)
	}
	for _, name := range wantBuilt {
		link := w.livePath(filepath.Join("usr", "bin", name))
		if _, err := os.Lstat(link); err != nil {
			t.Errorf("missing live link for %s: %v", name, err)
		}
	}
}

func TestInstall_DeclinedDependencyPromptLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "app", "lib", "")
	w.binPackage(t, "lib", "", "")
	w.confirm.answers = []bool{false}

	res := w.tx.Install(context.Background(), "app")

	if res.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeCancelled)
	}
	if len(w.builder.built) != 0 {
		t.Errorf("builder ran for %v, want no builds", w.builder.built)
	}
	if got := w.tx.Nest.Names(); len(got) != 0 {
		t.Errorf("registry = %v, want empty", got)
	}
}

func TestInstall_SkipInstalled(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "zlib", "", "")
	if err := w.tx.Nest.Register("zlib"); err != nil {
		t.Fatal(err)
	}
	w.tx.Opts.SkipInstalled = true

	res := w.tx.Install(context.Background(), "zlib")

	if res.Outcome != OutcomeInstalled || res.Err != nil {
		t.Fatalf("Result = %+v, want clean %v", res, OutcomeInstalled)
	}
	if len(w.builder.built) != 0 {
		t.Errorf("builder ran for %v, want no builds", w.builder.built)
	}
}

func TestInstall_AlreadyInstalledDeclined(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "zlib", "", "")
	if err := w.tx.Nest.Register("zlib"); err != nil {
		t.Fatal(err)
	}
	w.confirm.answers = []bool{false}

	res := w.tx.Install(context.Background(), "zlib")

	if res.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeCancelled)
	}
	var already *AlreadyInstalledError
	if !errors.As(res.Err, &already) {
		t.Fatalf("Err = %v, want AlreadyInstalledError", res.Err)
	}
	if len(w.builder.built) != 0 {
		t.Errorf("builder ran for %v, want no builds", w.builder.built)
	}
}

func TestInstall_ForcedReinstallSkipsDependencyChecks(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "editor", "missing-dep", "")
	if err := w.tx.Nest.Register("editor"); err != nil {
		t.Fatal(err)
	}
	w.tx.Opts.Force = true

	res := w.tx.Install(context.Background(), "editor")

	if res.Outcome != OutcomeInstalled {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeInstalled)
	}
	if !reflect.DeepEqual(w.builder.built, []string{"editor"}) {
		t.Errorf("built = %v, want only editor", w.builder.built)
	}
	if len(w.confirm.prompts) != 0 {
		t.Errorf("prompts = %v, want none under --force", w.confirm.prompts)
	}
	link := w.livePath(filepath.Join("usr", "bin", "editor"))
	if _, err := os.Lstat(link); err != nil {
		t.Errorf("missing live link after reinstall: %v", err)
	}
}

func TestInstall_BuildFailureKeepsStagingTree(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "gcc", "", "")
	w.builder.fail["gcc"] = errors.New("compile error")

	res := w.tx.Install(context.Background(), "gcc")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	var buildErr *BuildFailedError
	if !errors.As(res.Err, &buildErr) {
		t.Fatalf("Err = %v, want BuildFailedError", res.Err)
	}
	if !w.tx.Store.Exists("gcc") {
		t.Error("staging tree removed after failed build, want kept for inspection")
	}
	if w.tx.Nest.IsInstalled("gcc") {
		t.Error("failed package was registered")
	}
}

func TestInstall_TestFailureAborts(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "grep", "", "test")
	w.builder.testErr["grep"] = errors.New("2 tests failed")
	w.tx.Opts.RunTests = true

	res := w.tx.Install(context.Background(), "grep")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	var testErr *TestFailedError
	if !errors.As(res.Err, &testErr) {
		t.Fatalf("Err = %v, want TestFailedError", res.Err)
	}
	if w.tx.Nest.IsInstalled("grep") {
		t.Error("package registered despite failed tests")
	}
}

func TestInstall_TestsSkippedWithoutFlag(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "sed", "", "")
	w.tx.Opts.RunTests = true

	res := w.tx.Install(context.Background(), "sed")

	if res.Outcome != OutcomeInstalled {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeInstalled)
	}
	if len(w.builder.tested) != 0 {
		t.Errorf("tested = %v, want none for a package without the test flag", w.builder.tested)
	}
}

func TestInstall_SourceUnavailableAborts(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "curl", "", "")
	w.source.err["curl"] = errors.New("checksum mismatch")

	res := w.tx.Install(context.Background(), "curl")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	var srcErr *SourceUnavailableError
	if !errors.As(res.Err, &srcErr) {
		t.Fatalf("Err = %v, want SourceUnavailableError", res.Err)
	}
	if len(w.builder.built) != 0 {
		t.Errorf("builder ran for %v, want no builds", w.builder.built)
	}
}

func TestInstall_ConflictAbortsWithoutMutation(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "coreutils", "", "")

	// Pre-existing regular file where the package wants a link.
	occupied := w.livePath(filepath.Join("usr", "bin", "coreutils"))
	if err := os.MkdirAll(filepath.Dir(occupied), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(occupied, []byte("hands off"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := w.tx.Install(context.Background(), "coreutils")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0] != occupied {
		t.Errorf("Conflicts = %v, want [%s]", res.Conflicts, occupied)
	}
	data, err := os.ReadFile(occupied)
	if err != nil || string(data) != "hands off" {
		t.Errorf("live file changed: %q, %v", data, err)
	}
	if w.tx.Nest.IsInstalled("coreutils") {
		t.Error("conflicting package was registered")
	}
	if !w.tx.Store.Exists("coreutils") {
		t.Error("staging tree removed after conflict, want kept")
	}
}

func TestInstall_OverwriteClearsConflicts(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "coreutils", "", "")
	w.tx.Opts.Overwrite = true

	occupied := w.livePath(filepath.Join("usr", "bin", "coreutils"))
	if err := os.MkdirAll(filepath.Dir(occupied), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(occupied, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := w.tx.Install(context.Background(), "coreutils")

	if res.Outcome != OutcomeInstalled {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeInstalled)
	}
	info, err := os.Lstat(occupied)
	if err != nil {
		t.Fatalf("Lstat(%s) error: %v", occupied, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("occupied path not replaced with a link under --overwrite")
	}
}

func TestInstall_EmptyTreeAbsorbed(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.writeSeed(t, "headers", "", "")
	// No files registered with the builder: the staged skeleton stays empty.

	res := w.tx.Install(context.Background(), "headers")

	if res.Outcome != OutcomeAbsorbed {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeAbsorbed)
	}
	if !w.tx.Nest.IsInstalled("headers") {
		t.Error("absorbed package not registered")
	}
	if w.tx.Store.Exists("headers") {
		t.Error("absorbed staging tree still present")
	}
}

func TestInstall_DependencyFailureAbortsRoot(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "app", "lib", "")
	w.binPackage(t, "lib", "", "")
	w.builder.fail["lib"] = errors.New("boom")

	res := w.tx.Install(context.Background(), "app")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	var depErr *DependencyFailedError
	if !errors.As(res.Err, &depErr) {
		t.Fatalf("Err = %v, want DependencyFailedError", res.Err)
	}
	if depErr.Dep != "lib" {
		t.Errorf("Dep = %q, want %q", depErr.Dep, "lib")
	}
	if got := w.tx.Nest.Names(); len(got) != 0 {
		t.Errorf("registry = %v, want empty after dependency failure", got)
	}
}

func TestInstall_MissingPackageAborts(t *testing.T) {
	t.Parallel()
	w := newWorld(t)

	res := w.tx.Install(context.Background(), "no-such-package")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	var missing *repo.MissingPackageError
	if !errors.As(res.Err, &missing) {
		t.Fatalf("Err = %v, want MissingPackageError", res.Err)
	}
}

func TestInstall_DependencyCycleAborts(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "a", "b", "")
	w.binPackage(t, "b", "a", "")

	res := w.tx.Install(context.Background(), "a")

	if res.Outcome != OutcomeAborted {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeAborted)
	}
	var cycle *deps.CycleError
	if !errors.As(res.Err, &cycle) {
		t.Fatalf("Err = %v, want CycleError", res.Err)
	}
}

func TestUninstall_NotInstalled(t *testing.T) {
	t.Parallel()
	w := newWorld(t)

	res := w.tx.Uninstall(context.Background(), "ghost")

	if res.Outcome != OutcomeNotInstalled {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeNotInstalled)
	}
	var notInstalled *nest.NotInstalledError
	if !errors.As(res.Err, &notInstalled) {
		t.Fatalf("Err = %v, want NotInstalledError", res.Err)
	}
}

func TestUninstall_RemovesLinksTreeAndRegistration(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "nano", "", "")
	if res := w.tx.Install(context.Background(), "nano"); res.Outcome != OutcomeInstalled {
		t.Fatalf("install failed: %+v", res)
	}

	res := w.tx.Uninstall(context.Background(), "nano")

	if res.Outcome != OutcomeUninstalled {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeUninstalled)
	}
	if _, err := os.Lstat(w.livePath(filepath.Join("usr", "bin", "nano"))); !os.IsNotExist(err) {
		t.Errorf("live link still present: %v", err)
	}
	if w.tx.Store.Exists("nano") {
		t.Error("staging tree still present after uninstall")
	}
	if w.tx.Nest.IsInstalled("nano") {
		t.Error("package still registered after uninstall")
	}
}

func TestUninstall_ProtectedDeclined(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "glibc", "", "important")
	if res := w.tx.Install(context.Background(), "glibc"); res.Outcome != OutcomeInstalled {
		t.Fatalf("install failed: %+v", res)
	}
	w.confirm.typedAnswers = []bool{false}

	res := w.tx.Uninstall(context.Background(), "glibc")

	if res.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeCancelled)
	}
	var declined *ProtectedDeclinedError
	if !errors.As(res.Err, &declined) {
		t.Fatalf("Err = %v, want ProtectedDeclinedError", res.Err)
	}
	if !w.tx.Nest.IsInstalled("glibc") {
		t.Error("package unregistered despite declined confirmation")
	}
	if _, err := os.Lstat(w.livePath(filepath.Join("usr", "bin", "glibc"))); err != nil {
		t.Errorf("live link removed despite declined confirmation: %v", err)
	}
}

func TestUninstall_DependentsDeclined(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "readline", "", "")
	w.binPackage(t, "bash", "readline", "")
	for _, name := range []string{"readline", "bash"} {
		if res := w.tx.Install(context.Background(), name); res.Failed() {
			t.Fatalf("install %s failed: %+v", name, res)
		}
	}
	w.confirm.answers = []bool{false}

	res := w.tx.Uninstall(context.Background(), "readline")

	if res.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeCancelled)
	}
	var declined *DependentsDeclinedError
	if !errors.As(res.Err, &declined) {
		t.Fatalf("Err = %v, want DependentsDeclinedError", res.Err)
	}
	if !reflect.DeepEqual(declined.Dependents, []string{"bash"}) {
		t.Errorf("Dependents = %v, want [bash]", declined.Dependents)
	}
	if !w.tx.Nest.IsInstalled("readline") {
		t.Error("package unregistered despite declined confirmation")
	}
}

func TestUninstall_PythonHookRuns(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.binPackage(t, "requests", "", "python")
	if res := w.tx.Install(context.Background(), "requests"); res.Outcome != OutcomeInstalled {
		t.Fatalf("install failed: %+v", res)
	}

	res := w.tx.Uninstall(context.Background(), "requests")

	if res.Outcome != OutcomeUninstalled {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, OutcomeUninstalled)
	}
	if !reflect.DeepEqual(w.hooks.pipRemovals, []string{"requests"}) {
		t.Errorf("pip removals = %v, want [requests]", w.hooks.pipRemovals)
	}
}

func TestInstallUninstall_FontHookRuns(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	w.writeSeed(t, "dejavu", "", "font")
	w.builder.files["dejavu"] = []string{filepath.Join("usr", "share", "fonts", "dejavu.ttf")}

	if res := w.tx.Install(context.Background(), "dejavu"); res.Outcome != OutcomeInstalled {
		t.Fatalf("install failed: %+v", res)
	}
	if w.hooks.fontRefreshes != 1 {
		t.Fatalf("font refreshes after install = %d, want 1", w.hooks.fontRefreshes)
	}
	if res := w.tx.Uninstall(context.Background(), "dejavu"); res.Outcome != OutcomeUninstalled {
		t.Fatalf("uninstall failed: %+v", res)
	}
	if w.hooks.fontRefreshes != 2 {
		t.Errorf("font refreshes after uninstall = %d, want 2", w.hooks.fontRefreshes)
	}
}
