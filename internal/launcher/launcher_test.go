package launcher

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/tabsync/tabsync/internal/backup"
	"github.com/tabsync/tabsync/internal/engine"
	"github.com/tabsync/tabsync/internal/meta"
	"github.com/tabsync/tabsync/internal/remote"
	"github.com/tabsync/tabsync/internal/resolve"
	"github.com/tabsync/tabsync/internal/util"
)

// memoryBackend is a minimal in-process remote store for launcher tests.
type memoryBackend struct {
	exists   bool
	content  []byte
	revision int
}

func (m *memoryBackend) Kind() string { return "memory" }

func (m *memoryBackend) Fetch(_ context.Context) (*remote.Fetched, error) {
	if !m.exists {
		return nil, remote.ErrNotFound
	}
	return &remote.Fetched{
		Content:   append([]byte(nil), m.content...),
		Revision:  "r",
		UpdatedAt: time.Now(),
	}, nil
}

func (m *memoryBackend) Push(_ context.Context, content []byte, _ string) (string, error) {
	m.content = append([]byte(nil), content...)
	m.exists = true
	m.revision++
	return "r", nil
}

func newTestEngine(t *testing.T, backend remote.Backend) (*engine.Engine, string) {
	t.Helper()
	dir := util.CreateTempDir(t)
	configPath := filepath.Join(dir, "config.yaml")

	resolver, err := resolve.NewResolver(resolve.StrategyNewest)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	eng, err := engine.New(engine.Options{
		ConfigPath: configPath,
		Backend:    backend,
		Meta:       meta.NewStore(filepath.Join(dir, ".sync_metadata.json")),
		Backups:    backup.NewManager(filepath.Join(dir, "backups"), 0),
		Resolver:   resolver,
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	return eng, configPath
}

func TestRunRequiresCommand(t *testing.T) {
	eng, _ := newTestEngine(t, &memoryBackend{})
	if err := Run(context.Background(), eng, nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRunSyncsAroundCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}

	backend := &memoryBackend{}
	eng, configPath := newTestEngine(t, backend)
	util.WriteFile(t, configPath, "key: before\n")

	// The launched command edits the config, as a terminal session would.
	err := Run(context.Background(), eng, []string{"sh", "-c", "printf 'key: after\\n' > " + configPath})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if string(backend.content) != "key: after\n" {
		t.Errorf("remote content = %q, want the post-run edit", backend.content)
	}
}

func TestRunCommandFailureIsReturned(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}

	backend := &memoryBackend{}
	eng, configPath := newTestEngine(t, backend)
	util.WriteFile(t, configPath, "key: value\n")

	err := Run(context.Background(), eng, []string{"sh", "-c", "exit 3"})
	if err == nil {
		t.Fatal("expected the command's failure to be returned")
	}

	// The push still happened despite the failure.
	if !backend.exists {
		t.Error("expected configuration to be pushed after the command exited")
	}
}

func TestRunMissingBinary(t *testing.T) {
	eng, configPath := newTestEngine(t, &memoryBackend{})
	util.WriteFile(t, configPath, "key: value\n")

	err := Run(context.Background(), eng, []string{"definitely-not-a-real-binary-12345"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}
