package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
	"github.com/cmakex/cmakex/internal/vcs"
)

// fakeVCS is an in-memory stand-in for internal/vcs.Git: Clone creates
// the target directory (so dirExists reflects it) and records the
// commit a caller would see from RevParse/LsRemote.
type fakeVCS struct {
	remoteHead map[string]string // url -> commit
	cloned     map[string]string // dir -> url
	statuses   map[string]vcs.StatusResult
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{remoteHead: map[string]string{}, cloned: map[string]string{}, statuses: map[string]vcs.StatusResult{}}
}

func (f *fakeVCS) Clone(ctx context.Context, params vcs.CloneParams, target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	f.cloned[target] = params.URL
	return nil
}

func (f *fakeVCS) Checkout(ctx context.Context, target, ref string) (int, error) { return 0, nil }

func (f *fakeVCS) LsRemote(ctx context.Context, url, ref string) (vcs.LsRemoteStatus, string, error) {
	if sha, ok := f.remoteHead[url]; ok {
		return vcs.LsRemoteResolved, sha, nil
	}
	return vcs.LsRemoteNotFound, "", nil
}

func (f *fakeVCS) RevParse(ctx context.Context, dir, ref string) (string, error) {
	url := f.cloned[dir]
	return f.remoteHead[url], nil
}

func (f *fakeVCS) Status(ctx context.Context, dir string) (vcs.StatusResult, error) {
	return f.statuses[dir], nil
}

func (f *fakeVCS) ResolveAndClone(ctx context.Context, url, commit, target string) error {
	if err := f.Clone(ctx, vcs.CloneParams{URL: url}, target); err != nil {
		return err
	}
	_, err := f.Checkout(ctx, target, commit)
	return err
}

// fakeDiscoverer returns a fixed dependency list for one source
// directory and nothing for everything else.
type fakeDiscoverer struct {
	byDir map[string][]Request
}

func (d *fakeDiscoverer) Discover(ctx context.Context, sourceDir, override string) ([]Request, bool, error) {
	deps, ok := d.byDir[sourceDir]
	if !ok {
		return nil, false, nil
	}
	return deps, true, nil
}

func TestPlanFreshBuildClonesAndMarksBuild(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	v := newFakeVCS()
	v.remoteHead["https://example.com/a.git"] = "commit-a"
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}

	p := New(l, db, v, disc, true, nil)
	plan, err := p.Plan(context.Background(), Params{
		MainSourceDir: filepath.Join(root, "main"),
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Ref: "main", Configs: []string{"Debug", "Release"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, plan.Order)

	entry := plan.Entries["A"]
	require.True(t, entry.JustCloned)
	require.Equal(t, "commit-a", entry.ResolvedCommit)
	require.Len(t, entry.Actions, 2)
	require.Contains(t, entry.Actions["Debug"].Reasons, "requested but not installed")
}

func TestPlanSatisfiedNeedsNoAction(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	require.NoError(t, db.Put(installdb.Record{
		Name: "A",
		Configs: map[string]installdb.ConfigEntry{
			"Debug": {
				Configuration:  "Debug",
				RemoteURL:      "https://example.com/a.git",
				ResolvedCommit: "commit-a",
				ConfigureArgs:  nil,
			},
		},
	}))

	v := newFakeVCS()
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}
	p := New(l, db, v, disc, false, nil)

	plan, err := p.Plan(context.Background(), Params{
		MainSourceDir: filepath.Join(root, "main"),
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Ref: "main", Configs: []string{"Debug"}},
		},
	})
	require.NoError(t, err)
	entry := plan.Entries["A"]
	require.Empty(t, entry.Actions)
	require.False(t, entry.JustCloned)
}

func TestPlanMissingConfigsOnlyBuildsTheGap(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	require.NoError(t, db.Put(installdb.Record{
		Name: "A",
		Configs: map[string]installdb.ConfigEntry{
			"Debug": {Configuration: "Debug", RemoteURL: "https://example.com/a.git", ResolvedCommit: "commit-a"},
		},
	}))

	v := newFakeVCS()
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}
	p := New(l, db, v, disc, false, nil)

	plan, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Configs: []string{"Debug", "Release"}},
		},
	})
	require.NoError(t, err)
	entry := plan.Entries["A"]
	require.Len(t, entry.Actions, 1)
	require.Contains(t, entry.Actions, "Release")
}

func TestPlanIncompatibleFlagsRebuildsEverything(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	require.NoError(t, db.Put(installdb.Record{
		Name: "A",
		Configs: map[string]installdb.ConfigEntry{
			"Debug": {
				Configuration:  "Debug",
				RemoteURL:      "https://example.com/a.git",
				ResolvedCommit: "commit-a",
				ConfigureArgs:  []string{"-DFOO=1"},
			},
		},
	}))
	require.NoError(t, os.MkdirAll(l.CloneDir("A"), 0o755))

	v := newFakeVCS()
	v.cloned[l.CloneDir("A")] = "https://example.com/a.git"
	v.remoteHead["https://example.com/a.git"] = "commit-a"
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}
	p := New(l, db, v, disc, false, nil)

	plan, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Configs: []string{"Debug"}, ConfigureArgs: []string{"-DFOO=2"}},
		},
	})
	require.NoError(t, err)
	entry := plan.Entries["A"]
	require.Len(t, entry.Actions, 1)
	require.Contains(t, entry.Actions["Debug"].Reasons[0], "configure flags changed")
}

func TestPlanCircularDependencyDetected(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	v := newFakeVCS()
	v.remoteHead["https://example.com/a.git"] = "commit-a"
	v.remoteHead["https://example.com/b.git"] = "commit-b"

	aSourceDir := filepath.Join(l.CloneDir("A"))
	bSourceDir := filepath.Join(l.CloneDir("B"))
	disc := &fakeDiscoverer{byDir: map[string][]Request{
		aSourceDir: {{Name: "B", URL: "https://example.com/b.git", Configs: []string{"Debug"}}},
		bSourceDir: {{Name: "A", URL: "https://example.com/a.git", Configs: []string{"Debug"}}},
	}}
	p := New(l, db, v, disc, false, nil)

	_, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Configs: []string{"Debug"}},
		},
	})
	require.Error(t, err)
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
}

func TestPlanDependencyPropagationOrdersDependencyFirst(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	v := newFakeVCS()
	v.remoteHead["https://example.com/a.git"] = "commit-a"
	v.remoteHead["https://example.com/b.git"] = "commit-b"

	aSourceDir := l.CloneDir("A")
	disc := &fakeDiscoverer{byDir: map[string][]Request{
		aSourceDir: {{Name: "B", URL: "https://example.com/b.git", Configs: []string{"Debug"}}},
	}}
	p := New(l, db, v, disc, false, nil)

	plan, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Configs: []string{"Debug"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A"}, plan.Order)
}

func TestPlanNameOnlyDependencyMustBeInstalled(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	v := newFakeVCS()
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}
	p := New(l, db, v, disc, false, nil)

	_, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{{Name: "A", Configs: []string{"Debug"}}},
	})
	require.Error(t, err)
}

func TestPlanStrictModeRebuildsWhenRemoteAdvanced(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	require.NoError(t, db.Put(installdb.Record{
		Name: "B",
		Configs: map[string]installdb.ConfigEntry{
			"Debug": {Configuration: "Debug", RemoteURL: "https://example.com/b.git", ResolvedCommit: "commit-old"},
		},
	}))

	v := newFakeVCS()
	v.remoteHead["https://example.com/b.git"] = "commit-new"
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}
	p := New(l, db, v, disc, true, nil)

	plan, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{
			{Name: "B", URL: "https://example.com/b.git", Configs: []string{"Debug"}},
		},
	})
	require.NoError(t, err)
	entry := plan.Entries["B"]
	require.Equal(t, "commit-new", entry.ResolvedCommit)
	require.Contains(t, entry.Actions["Debug"].Reasons, "HEAD on remote advanced from commit-old to commit-new")
}

func TestPlanRebuildsWhenDependencyFingerprintChanged(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root)
	db := installdb.New(l.InstalledDir())
	require.NoError(t, db.Put(installdb.Record{
		Name: "B",
		Configs: map[string]installdb.ConfigEntry{
			"Debug": {Configuration: "Debug", RemoteURL: "https://example.com/b.git", ResolvedCommit: "commit-b2"},
		},
	}))
	oldBFingerprint := "stale-fingerprint"
	require.NoError(t, db.Put(installdb.Record{
		Name:         "A",
		Dependencies: []string{"B"},
		Configs: map[string]installdb.ConfigEntry{
			"Debug": {
				Configuration:  "Debug",
				RemoteURL:      "https://example.com/a.git",
				ResolvedCommit: "commit-a",
				DependencyFingerprints: map[string]map[string]string{
					"B": {"Debug": oldBFingerprint},
				},
			},
		},
	}))

	v := newFakeVCS()
	v.remoteHead["https://example.com/a.git"] = "commit-a"
	disc := &fakeDiscoverer{byDir: map[string][]Request{}}
	p := New(l, db, v, disc, false, nil)

	plan, err := p.Plan(context.Background(), Params{
		RequestedDeps: []Request{
			{Name: "A", URL: "https://example.com/a.git", Configs: []string{"Debug"}},
		},
	})
	require.NoError(t, err)
	entry := plan.Entries["A"]
	require.Len(t, entry.Actions, 1)
	require.Contains(t, entry.Actions["Debug"].Reasons[0], "dependency B fingerprint changed from stale-fingerprint to")
}

func TestMergeRequestsRejectsConflictingSourceSubPath(t *testing.T) {
	_, err := mergeRequests(Request{Name: "A", SourceSubPath: "lib"}, Request{Name: "A", SourceSubPath: "other"})
	require.Error(t, err)
}

func TestMergeRequestsUnionsConfigs(t *testing.T) {
	merged, err := mergeRequests(
		Request{Name: "A", Configs: []string{"Debug"}},
		Request{Name: "A", Configs: []string{"Release"}},
	)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Debug", "Release"}, merged.Configs)
}
