package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frameforge/internal/config"
	"frameforge/internal/ff"
	"frameforge/internal/prompt"
	"frameforge/internal/testutil"
)

// pngBytes is a 1x1 PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Database.Type = "memory"
	cfg.BlobStore = config.BlobStoreConfig{Type: "memory"}
	cfg.Gateway.RateInterval = ""
	cfg.Editing.Debounce = ""
	return cfg
}

func testOptions() Options {
	return Options{
		Credentials: &config.Credentials{GoogleAPIKey: "test-key"},
		Clock:       testutil.FixedClock(),
		IDs:         testutil.NewStubIDGenerator(),
		Passphrase:  func() (string, error) { return "secret", nil },
	}
}

func openApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	a, err := NewApp(cfg, "Test", opts)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return a
}

// inlineProvider serves generateContent answers: an image for image models
// and a JSON continuation for the text model.
func inlineProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "bad key", http.StatusForbidden)
			return
		}
		var part map[string]any
		if strings.Contains(r.URL.Path, "-image") {
			part = map[string]any{"inlineData": map[string]string{"mimeType": "image/png", "data": "aGVsbG8="}}
		} else {
			part = map[string]any{"text": `{"prompt":"The chase begins","speaker":"","dialogue":"Run!"}`}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{part}}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.BlobStore.Type = "tape"
	if _, err := NewApp(cfg, "Test", testOptions()); err == nil {
		t.Error("NewApp() expected error for unknown blob store type")
	}
}

func TestNewApp_RequiresMigratedDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}

	_, err := NewApp(cfg, "Test", testOptions())
	if err == nil || !strings.Contains(err.Error(), "db migrate") {
		t.Fatalf("NewApp() error = %v, want hint to migrate", err)
	}

	if _, err := MigrateDatabase(cfg.Database); err != nil {
		t.Fatalf("MigrateDatabase() error = %v", err)
	}
	a := openApp(t, cfg, testOptions())
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestApp_ProjectsAndFrames(t *testing.T) {
	a := openApp(t, testConfig(t), testOptions())
	defer a.Close()

	p, err := a.AddProject("Trailer", "A heist")
	if err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	if got, err := a.ResolveProject("Trailer"); err != nil || got.ID != p.ID {
		t.Errorf("ResolveProject(name) = %v, %v", got.ID, err)
	}
	if _, err := a.ResolveProject("nope"); !errors.Is(err, ff.ErrProjectNotFound) {
		t.Errorf("ResolveProject(unknown) error = %v", err)
	}

	first, err := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("a")})
	if err != nil {
		t.Fatalf("AddFrame() error = %v", err)
	}
	last, err := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("c")})
	if err != nil {
		t.Fatalf("AddFrame() error = %v", err)
	}
	if _, err := a.InsertFrame(first.ID, ff.FramePatch{Prompt: ff.Ptr("b")}); err != nil {
		t.Fatalf("InsertFrame() error = %v", err)
	}

	rows, err := a.PromptTable("Trailer")
	if err != nil {
		t.Fatalf("PromptTable() error = %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, strings.SplitN(r.Narrative, ",", 2)[0])
	}
	if strings.Join(got, "") != "abc" {
		t.Errorf("table order = %v, want a b c", got)
	}

	frames, _ := a.ListFrames(p.ID)
	refs := []string{frames[2].ID, frames[1].ID, frames[0].ID}
	if err := a.ReorderFrames(p.ID, refs); err != nil {
		t.Fatalf("ReorderFrames() error = %v", err)
	}
	var verr *ff.ValidationError
	if err := a.ReorderFrames(p.ID, refs[:2]); !errors.As(err, &verr) {
		t.Errorf("ReorderFrames(partial) error = %v, want ValidationError", err)
	}
	if err := a.ReorderFrames(p.ID, []string{refs[0], refs[0], refs[1]}); !errors.As(err, &verr) {
		t.Errorf("ReorderFrames(duplicate) error = %v, want ValidationError", err)
	}

	if err := a.DeleteFrame(last.ID); err != nil {
		t.Fatalf("DeleteFrame() error = %v", err)
	}
	frames, _ = a.ListFrames(p.ID)
	if len(frames) != 2 || frames[0].Prompt != "b" || frames[1].Prompt != "a" {
		t.Errorf("frames after reorder and delete = %+v", frames)
	}

	grid, err := a.GridPrompt(p.ID, prompt.Grid3x3)
	if err != nil || !strings.Contains(grid, "Panel 1") {
		t.Errorf("GridPrompt() = %q, %v", grid, err)
	}
	if _, err := a.GridPrompt(p.ID, 4); !errors.Is(err, prompt.ErrInvalidGridSize) {
		t.Errorf("GridPrompt(4) error = %v", err)
	}
}

func TestApp_UpdateFrameIsBufferedUntilClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}
	cfg.Editing.Debounce = "1h"
	if _, err := MigrateDatabase(cfg.Database); err != nil {
		t.Fatalf("MigrateDatabase() error = %v", err)
	}

	a := openApp(t, cfg, testOptions())
	p, _ := a.AddProject("Trailer", "")
	f, _ := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("draft")})

	if _, err := a.UpdateFrame(f.ID, ff.FramePatch{Prompt: ff.Ptr("final")}); err != nil {
		t.Fatalf("UpdateFrame() error = %v", err)
	}
	if stored, _ := a.Service().Frames().Get(f.ID); stored.Prompt != "draft" {
		t.Errorf("edit committed before the quiet period: %q", stored.Prompt)
	}
	if live, _ := a.ResolveFrame(f.ID); live.Prompt != "final" {
		t.Errorf("ResolveFrame() prompt = %q, want the pending edit", live.Prompt)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	opts := testOptions()
	opts.IDs = testutil.NewPrefixedIDGenerator("again-")
	reopened := openApp(t, cfg, opts)
	defer reopened.Close()
	got, err := reopened.ResolveFrame(f.ID)
	if err != nil {
		t.Fatalf("ResolveFrame() error = %v", err)
	}
	if got.Prompt != "final" {
		t.Errorf("prompt after reopen = %q, want final", got.Prompt)
	}

	added, err := reopened.AddFrame(p.ID, ff.FramePatch{})
	if err != nil {
		t.Fatalf("AddFrame() after reopen error = %v", err)
	}
	if added.ID != "again-1" || added.Order != 1 {
		t.Errorf("AddFrame() after reopen = %s at %d", added.ID, added.Order)
	}
}

func TestApp_SelectionPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}
	if _, err := MigrateDatabase(cfg.Database); err != nil {
		t.Fatalf("MigrateDatabase() error = %v", err)
	}

	a := openApp(t, cfg, testOptions())
	p, _ := a.AddProject("Trailer", "")
	f, _ := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("a")})
	if _, err := a.SelectFrame(f.ID); err != nil {
		t.Fatalf("SelectFrame() error = %v", err)
	}
	a.Close()

	b := openApp(t, cfg, testOptions())
	got, err := b.ResolveFrame("")
	if err != nil || got.ID != f.ID {
		t.Errorf("ResolveFrame(\"\") = %v, %v; want selected %s", got.ID, err, f.ID)
	}
	if err := b.DeleteFrame(f.ID); err != nil {
		t.Fatalf("DeleteFrame() error = %v", err)
	}
	b.Close()

	if _, err := os.Stat(filepath.Join(cfg.BaseDir, SelectionFileName)); !os.IsNotExist(err) {
		t.Errorf("selection file still present after the frame was deleted: %v", err)
	}
}

func TestApp_Generation(t *testing.T) {
	srv := inlineProvider(t)
	cfg := testConfig(t)
	cfg.Gateway.InlineBaseURL = srv.URL

	a := openApp(t, cfg, testOptions())
	defer a.Close()
	p, _ := a.AddProject("Trailer", "")
	f, _ := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("A vault door"), Speaker: ff.Ptr("Ana")})

	got, err := a.GenerateImage(context.Background(), f.ID, "", "")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if got.CreditCost == nil || *got.CreditCost != 2 {
		t.Errorf("CreditCost = %v, want 2 for the default model", got.CreditCost)
	}

	out := filepath.Join(t.TempDir(), "frame.png")
	if err := a.ExportImageFile(f.ID, out); err != nil {
		t.Fatalf("ExportImageFile() error = %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "hello" {
		t.Errorf("exported image = %q, want hello", data)
	}

	next, err := a.GenerateNextFrame(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("GenerateNextFrame() error = %v", err)
	}
	if next.Prompt != "The chase begins" || next.Speaker != "Ana" || next.Dialogue != "Run!" || next.Order != 1 {
		t.Errorf("GenerateNextFrame() = %+v", next)
	}

	results, err := a.GenerateProjectImages(context.Background(), p.ID, "gemini-3-pro-image-preview", "1:1")
	if err != nil {
		t.Fatalf("GenerateProjectImages() error = %v", err)
	}
	for _, r := range results {
		if r.Err != nil || r.Frame == nil || *r.Frame.CreditCost != 10 {
			t.Errorf("batch result = %+v", r)
		}
	}
}

func TestApp_ImagesAndBundles(t *testing.T) {
	a := openApp(t, testConfig(t), testOptions())
	defer a.Close()
	p, _ := a.AddProject("Trailer", "")
	f, _ := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("a")})

	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, pngBytes, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AttachImageFile(f.ID, path); err != nil {
		t.Fatalf("AttachImageFile() error = %v", err)
	}

	textPath := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(textPath, []byte("just words"), 0644)
	var verr *ff.ValidationError
	if _, err := a.AttachImageFile(f.ID, textPath); !errors.As(err, &verr) {
		t.Errorf("AttachImageFile(text) error = %v, want ValidationError", err)
	}

	var bundle bytes.Buffer
	if err := a.ExportProject(p.ID, true, &bundle); err != nil {
		t.Fatalf("ExportProject() error = %v", err)
	}

	other := openApp(t, testConfig(t), testOptions())
	defer other.Close()
	res, err := other.ImportProject(&bundle)
	if err != nil {
		t.Fatalf("ImportProject() error = %v", err)
	}
	if !res.ProjectCreated || res.FramesAdded != 1 || res.ImagesAdded != 1 {
		t.Errorf("ImportProject() = %+v", res)
	}

	// An image whose frame is gone is pruned; the live frame's image stays.
	if err := a.images.SaveImage("ghost", "data:image/png;base64,aGVsbG8="); err != nil {
		t.Fatal(err)
	}
	n, err := a.PruneImages()
	if err != nil || n != 1 {
		t.Errorf("PruneImages() = %d, %v; want 1", n, err)
	}
	if _, ok, _ := a.Service().LoadImage(f.ID); !ok {
		t.Error("PruneImages() removed a live image")
	}

	if err := a.RemoveImage(f.ID); err != nil {
		t.Fatalf("RemoveImage() error = %v", err)
	}
	if err := a.ExportImageFile(f.ID, filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("ExportImageFile() expected error after RemoveImage")
	}
}

func TestSetPassphrase(t *testing.T) {
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "ff.pub"),
		PrivateKeyPath: filepath.Join(dir, "ff.key"),
	}

	created, err := SetPassphrase(cfg, "", "first")
	if err != nil || !created {
		t.Fatalf("SetPassphrase() = %v, %v; want created", created, err)
	}
	created, err = SetPassphrase(cfg, "first", "second")
	if err != nil || created {
		t.Fatalf("SetPassphrase(change) = %v, %v", created, err)
	}
	if _, err := SetPassphrase(cfg, "first", "third"); err == nil {
		t.Error("SetPassphrase() accepted the old passphrase after a change")
	}
}

func TestApp_EncryptedBlobStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.BlobStore = config.BlobStoreConfig{Type: "filesystem", FSRoot: t.TempDir(), Encrypt: true}
	if _, err := SetPassphrase(cfg.Encryption, "", "secret"); err != nil {
		t.Fatalf("SetPassphrase() error = %v", err)
	}

	a := openApp(t, cfg, testOptions())
	defer a.Close()
	p, _ := a.AddProject("Trailer", "")
	f, _ := a.AddFrame(p.ID, ff.FramePatch{Prompt: ff.Ptr("a")})
	if _, err := a.Service().AttachImage(f.ID, testutil.TinyPNG); err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.BlobStore.FSRoot, ff.ImageKey(f.ID)))
	if err != nil {
		t.Fatalf("reading blob: %v", err)
	}
	if bytes.Contains(raw, []byte("base64")) {
		t.Error("blob stored in plaintext")
	}
	payload, ok, err := a.Service().LoadImage(f.ID)
	if err != nil || !ok || payload != testutil.TinyPNG {
		t.Errorf("LoadImage() = %q, %v, %v", payload, ok, err)
	}
}

func TestDatabaseStatus(t *testing.T) {
	cfg := config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}

	st, err := DatabaseStatus(cfg)
	if err != nil {
		t.Fatalf("DatabaseStatus() error = %v", err)
	}
	if st.UpToDate() {
		t.Errorf("DatabaseStatus() before migrate = %+v, want pending", st)
	}

	path, err := MigrateDatabase(cfg)
	if err != nil {
		t.Fatalf("MigrateDatabase() error = %v", err)
	}
	if filepath.Base(path) != "frameforge.db" {
		t.Errorf("MigrateDatabase() path = %q", path)
	}
	if st, err := DatabaseStatus(cfg); err != nil || !st.UpToDate() {
		t.Errorf("DatabaseStatus() after migrate = %+v, %v", st, err)
	}
}
