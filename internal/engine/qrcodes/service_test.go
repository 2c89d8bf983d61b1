package qrcodes

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"qrgen/internal/engine/history"
)

type fakeEncoder struct {
	mu    sync.Mutex
	calls []string
	err   error
	// partial is written before err is returned
	partial string
}

func (f *fakeEncoder) Encode(w io.Writer, content string) error {
	f.mu.Lock()
	f.calls = append(f.calls, content)
	f.mu.Unlock()

	if f.err != nil {
		io.WriteString(w, f.partial)
		return f.err
	}
	_, err := io.WriteString(w, "png:"+content)
	return err
}

type recordedEvent struct {
	action   string
	filename string
	link     string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) Record(ctx context.Context, action, filename, link string, metadata map[string]interface{}) {
	r.events = append(r.events, recordedEvent{action: action, filename: filename, link: link})
}

type testEnv struct {
	svc      *Service
	encoder  *fakeEncoder
	recorder *fakeRecorder
	metrics  *Metrics
	ledger   *history.Ledger
	dir      string
	history  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	historyPath := filepath.Join(root, "data", "history.json")

	ledger, err := history.Open(historyPath)
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}

	env := &testEnv{
		encoder:  &fakeEncoder{},
		recorder: &fakeRecorder{},
		metrics:  NewMetrics(),
		ledger:   ledger,
		dir:      filepath.Join(root, "static", "qrcodes"),
		history:  historyPath,
	}

	env.svc, err = NewService(ledger, env.encoder, Options{
		OutputDir:    env.dir,
		PublicPrefix: "/static/qrcodes/",
		Recorder:     env.recorder,
		Metrics:      env.metrics,
		Now:          func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return env
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewService_CreatesOutputDir(t *testing.T) {
	env := newTestEnv(t)

	info, err := os.Stat(env.dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected output directory %s to exist, err = %v", env.dir, err)
	}
	if env.svc.PublicPrefix() != "/static/qrcodes" {
		t.Errorf("PublicPrefix() = %q", env.svc.PublicPrefix())
	}
}

func TestGenerate_AppendsSuffix(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Generate(context.Background(), "https://example.com", "a")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if res.Filename != "a.png" {
		t.Errorf("Filename = %q, want a.png", res.Filename)
	}
	if res.Path != "/static/qrcodes/a.png" {
		t.Errorf("Path = %q, want /static/qrcodes/a.png", res.Path)
	}
	if res.Cached {
		t.Error("expected a fresh generation")
	}

	data, err := os.ReadFile(filepath.Join(env.dir, "a.png"))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "png:https://example.com" {
		t.Errorf("stored content = %q", data)
	}

	want := []history.Entry{{
		Filename:  "a.png",
		Link:      "https://example.com",
		Path:      "/static/qrcodes/a.png",
		Timestamp: 1700000000,
	}}
	if len(res.History) != 1 || res.History[0] != want[0] {
		t.Errorf("History = %+v, want %+v", res.History, want)
	}
}

func TestGenerate_SanitizesFilename(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Generate(context.Background(), "https://example.com", "My File!.png")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Filename != "My_File.png" {
		t.Errorf("Filename = %q, want My_File.png", res.Filename)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "My_File.png")); err != nil {
		t.Errorf("expected My_File.png on disk: %v", err)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Generate(ctx, "https://example.com", "same"); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	res, err := env.svc.Generate(ctx, "https://example.com", "same.png")
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if !res.Cached {
		t.Error("expected second generation to be served from the existing file")
	}
	if len(env.encoder.calls) != 1 {
		t.Errorf("encoder called %d times, want 1", len(env.encoder.calls))
	}
	if env.ledger.Len() != 1 {
		t.Errorf("ledger has %d entries, want 1", env.ledger.Len())
	}
	if len(res.History) != 1 {
		t.Errorf("History has %d entries, want 1", len(res.History))
	}

	snap := env.metrics.Snapshot()
	if snap.Generated != 1 || snap.Cached != 1 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestGenerate_ReusedNameKeepsOldContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Generate(ctx, "https://old.example.com", "promo"); err != nil {
		t.Fatal(err)
	}
	res, err := env.svc.Generate(ctx, "https://new.example.com", "promo")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached {
		t.Error("expected the existing file to short-circuit generation")
	}

	data, _ := os.ReadFile(filepath.Join(env.dir, "promo.png"))
	if string(data) != "png:https://old.example.com" {
		t.Errorf("stored content = %q, want the first link", data)
	}
}

func TestGenerate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		filename string
		wantErr  error
	}{
		{name: "Missing Link", link: "", filename: "a", wantErr: ErrMissingLink},
		{name: "Blank Link", link: "   ", filename: "a", wantErr: ErrMissingLink},
		{name: "Empty Filename", link: "https://example.com", filename: "", wantErr: ErrInvalidFilename},
		{name: "Disallowed Filename", link: "https://example.com", filename: "???", wantErr: ErrInvalidFilename},
		{name: "Dot Filename", link: "https://example.com", filename: "..", wantErr: ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.svc.Generate(context.Background(), tt.link, tt.filename)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if len(env.encoder.calls) != 0 {
				t.Error("encoder should not be called on validation failure")
			}
			if env.ledger.Len() != 0 {
				t.Error("ledger should be untouched on validation failure")
			}
			if n := len(listFiles(t, env.dir)); n != 0 {
				t.Errorf("output directory has %d files, want 0", n)
			}
		})
	}
}

func TestGenerate_EncoderFailureLeavesNoFile(t *testing.T) {
	env := newTestEnv(t)
	cause := errors.New("encoder exploded")
	env.encoder.err = cause
	env.encoder.partial = "half an image"

	_, err := env.svc.Generate(context.Background(), "https://example.com", "broken")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Generate() error = %v, want ErrGenerationFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Generate() error = %v does not wrap the cause", err)
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Filename != "broken.png" {
		t.Errorf("expected *GenerationError for broken.png, got %#v", err)
	}

	if files := listFiles(t, env.dir); len(files) != 0 {
		t.Errorf("output directory should be empty, has %v", files)
	}
	if env.ledger.Len() != 0 {
		t.Error("ledger should be untouched on failure")
	}

	last := env.recorder.events[len(env.recorder.events)-1]
	if last.action != ActionFailed {
		t.Errorf("last audit action = %q, want %q", last.action, ActionFailed)
	}
}

func TestGenerate_LedgerFailureRemovesImage(t *testing.T) {
	env := newTestEnv(t)

	// block the history file with a non-empty directory
	if err := os.MkdirAll(filepath.Join(env.history, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.Generate(context.Background(), "https://example.com", "orphan")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Generate() error = %v, want ErrGenerationFailed", err)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "orphan.png")); !os.IsNotExist(err) {
		t.Errorf("expected orphan.png to be removed, stat err = %v", err)
	}
}

func TestPurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		if _, err := env.svc.Generate(ctx, "https://example.com/"+name, name); err != nil {
			t.Fatal(err)
		}
	}
	// files the ledger never knew about go too
	if err := os.WriteFile(filepath.Join(env.dir, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if res.Removed != 4 || res.Failed != 0 {
		t.Errorf("Purge() = %+v, want 4 removed", res)
	}
	if got := env.svc.History(); len(got) != 0 {
		t.Errorf("History() after purge = %v", got)
	}
	if files := listFiles(t, env.dir); len(files) != 0 {
		t.Errorf("output directory after purge = %v", files)
	}

	reloaded, err := history.Open(env.history)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 0 {
		t.Errorf("persisted ledger has %d entries after purge", reloaded.Len())
	}

	snap := env.metrics.Snapshot()
	if snap.Purges != 1 || snap.FilesPurged != 4 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestPurge_ThenRegenerate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Generate(ctx, "https://example.com", "again"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := env.svc.Generate(ctx, "https://example.com", "again")
	if err != nil {
		t.Fatal(err)
	}
	if res.Cached {
		t.Error("expected a fresh generation after purge")
	}
	if len(env.encoder.calls) != 2 {
		t.Errorf("encoder called %d times, want 2", len(env.encoder.calls))
	}
}

func TestPurge_LedgerFailureKeepsFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Generate(ctx, "https://example.com", "keep"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(env.history); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(env.history, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := env.svc.Purge(ctx); err == nil {
		t.Fatal("expected Purge() to fail")
	}
	if env.ledger.Len() != 1 {
		t.Errorf("ledger has %d entries, want 1", env.ledger.Len())
	}
	if files := listFiles(t, env.dir); len(files) != 1 {
		t.Errorf("output directory = %v, want keep.png untouched", files)
	}
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.Generate(context.Background(), "https://example.com", "present"); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(env.dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.dir, ".qr-123.tmp"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := env.svc.Resolve("present.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != filepath.Join(env.dir, "present.png") {
		t.Errorf("Resolve() = %q", got)
	}

	for _, name := range []string{
		"never-written.png",
		"../../etc/passwd",
		"..",
		"../history.json",
		"",
		"subdir",
		".qr-123.tmp",
	} {
		if _, err := env.svc.Resolve(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}

func TestResolve_SanitizesLikeGenerate(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.Generate(context.Background(), "https://example.com", "My File!"); err != nil {
		t.Fatal(err)
	}
	got, err := env.svc.Resolve("My File!.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(got) != "My_File.png" {
		t.Errorf("Resolve() = %q", got)
	}
}
