package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"frameforge/internal/blobstore"
	"frameforge/internal/config"
	"frameforge/internal/database"
	"frameforge/internal/encryption"
	"frameforge/internal/ff"
	"frameforge/internal/gateway"
	"frameforge/internal/prompt"
	"frameforge/internal/staging"
)

// SelectionFileName holds the selected frame id between CLI invocations.
const SelectionFileName = "selection"

// Options overrides how NewApp builds its collaborators. The zero value is
// what the CLI uses.
type Options struct {
	// Console mirrors log output. Nil writes the log file only.
	Console io.Writer
	// Passphrase unlocks the blob encryption key. Nil uses ReadPassphrase.
	Passphrase blobstore.PassphraseFunc
	// Credentials replaces reading the provider keys from the environment.
	Credentials *config.Credentials
	// EnvFiles are loaded into the environment before reading credentials.
	EnvFiles   []string
	HTTPClient *http.Client
	Clock      ff.Clock
	IDs        ff.IDGenerator
}

// App is the application layer between the CLI and ff.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings (ids, id prefixes, names, file paths), and flushes
// pending edits and closes the database on Close.
type App struct {
	cfg         *config.Config
	store       *database.SQLiteStore
	images      *blobstore.ImageStore
	service     *ff.Service
	edits       *staging.EditBuffer
	unsubscribe func()
	op          *Operation
	logger      *slog.Logger
	logFile     *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "AddFrame", "GenerateImage").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = ff.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = ff.UUIDGenerator{}
	}
	if opts.Passphrase == nil {
		opts.Passphrase = func() (string, error) { return ReadPassphrase("Passphrase: ") }
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	op := NewOperation(operation, opts.Clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, level, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{cfg: cfg, op: op, logger: logger, logFile: logFile}
	if err := a.wire(opts); err != nil {
		a.closeResources()
		return nil, err
	}
	logger.Debug("operation started", "operation", operation)
	return a, nil
}

func (a *App) wire(opts Options) error {
	cfg := a.cfg

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.store = store
	if err := store.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date (run `frameforge db migrate`): %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(cfg.BlobStore, enc, opts.Passphrase)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	if err := blobs.ValidateSetup(); err != nil {
		return fmt.Errorf("blob store not usable: %w", err)
	}
	a.images = blobstore.NewImageStore(blobs)

	gw, err := newGateway(cfg.Gateway, opts, a.logger)
	if err != nil {
		return err
	}

	log := &slogAdapter{l: a.logger}
	projects, err := ff.NewProjectRepository(store, opts.Clock, opts.IDs)
	if err != nil {
		return err
	}
	frames, err := ff.NewFrameRepository(store, opts.IDs)
	if err != nil {
		return err
	}
	a.service = ff.NewService(projects, frames, a.images, gw, gw, log)

	debounce, err := config.ParseDuration("debounce", cfg.Editing.Debounce, 0)
	if err != nil {
		return err
	}
	a.edits = staging.NewEditBuffer(frames, debounce, log)
	a.unsubscribe = frames.Subscribe(func(ev ff.FrameEvent) {
		if ev.Kind == ff.FrameRemoved {
			a.edits.Discard(ev.FrameID)
		}
	})

	a.loadSelection()
	return nil
}

// newGateway builds the provider gateway from config and the credentials in
// the environment.
func newGateway(cfg config.GatewayConfig, opts Options, logger *slog.Logger) (*gateway.Gateway, error) {
	creds := opts.Credentials
	if creds == nil {
		c, err := config.LoadCredentials(opts.EnvFiles...)
		if err != nil {
			return nil, err
		}
		creds = &c
	}

	timeout, err := config.ParseDuration("timeout", cfg.Timeout, 0)
	if err != nil {
		return nil, err
	}
	interval, err := config.ParseDuration("rate_interval", cfg.RateInterval, 0)
	if err != nil {
		return nil, err
	}
	client := opts.HTTPClient
	if client == nil && timeout > 0 {
		client = &http.Client{Timeout: timeout}
	}

	return gateway.New(gateway.Options{
		ImageProvider: gateway.ProviderKind(cfg.ImageProvider),
		GoogleAPIKey:  creds.GoogleAPIKey,
		JobAPIKey:     creds.JobAPIKey,
		InlineBaseURL: cfg.InlineBaseURL,
		JobURL:        cfg.JobURL,
		TextModel:     cfg.TextModel,
		RateInterval:  interval,
		RateBurst:     cfg.RateBurst,
		HTTPClient:    client,
		Logger:        logger,
	}), nil
}

// Service exposes the domain service for callers that need more than the
// App methods offer.
func (a *App) Service() *ff.Service { return a.service }

// Fail records err as the outcome of the operation. It returns err.
func (a *App) Fail(err error) error {
	a.op.Fail(err)
	return err
}

// Projects

func (a *App) AddProject(name, description string) (ff.Project, error) {
	return a.service.Projects().Add(name, description)
}

func (a *App) ListProjects() []ff.Project {
	return a.service.Projects().List()
}

// ResolveProject finds a project by id, unique id prefix or exact name.
func (a *App) ResolveProject(ref string) (ff.Project, error) {
	if ref == "" {
		return ff.Project{}, fmt.Errorf("no project given")
	}
	projects := a.service.Projects().List()
	for _, p := range projects {
		if p.ID == ref {
			return p, nil
		}
	}
	var matches []ff.Project
	for _, p := range projects {
		if p.Name == ref || strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return ff.Project{}, fmt.Errorf("%q: %w", ref, ff.ErrProjectNotFound)
	case 1:
		return matches[0], nil
	default:
		return ff.Project{}, fmt.Errorf("%q matches %d projects", ref, len(matches))
	}
}

func (a *App) UpdateProject(ref string, patch ff.ProjectPatch) (ff.Project, error) {
	p, err := a.ResolveProject(ref)
	if err != nil {
		return ff.Project{}, err
	}
	if err := a.service.Projects().Update(p.ID, patch); err != nil {
		return ff.Project{}, err
	}
	updated, _ := a.service.Projects().Get(p.ID)
	return updated, nil
}

func (a *App) DeleteProject(ref string) error {
	p, err := a.ResolveProject(ref)
	if err != nil {
		return err
	}
	return a.service.DeleteProject(p.ID)
}

// ExportProject writes the project bundle as indented JSON.
func (a *App) ExportProject(ref string, withImages bool, w io.Writer) error {
	p, err := a.ResolveProject(ref)
	if err != nil {
		return err
	}
	b, err := a.service.ExportProject(p.ID, withImages)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	return nil
}

// ImportProject reads a JSON bundle written by ExportProject.
func (a *App) ImportProject(r io.Reader) (*ff.ImportResult, error) {
	var b ff.ProjectBundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return a.service.ImportProject(&b)
}

// Frames

// ResolveFrame finds a frame by id or unique id prefix. An empty ref means
// the selected frame.
func (a *App) ResolveFrame(ref string) (ff.Frame, error) {
	frames := a.service.Frames()
	if ref == "" {
		id, ok := frames.Selected()
		if !ok {
			return ff.Frame{}, fmt.Errorf("no frame given and none selected")
		}
		ref = id
	}
	if f, ok := frames.Get(ref); ok {
		return a.edits.Live(f), nil
	}

	var matches []ff.Frame
	for _, p := range a.service.Projects().List() {
		for _, f := range frames.List(p.ID) {
			if strings.HasPrefix(f.ID, ref) {
				matches = append(matches, f)
			}
		}
	}
	switch len(matches) {
	case 0:
		return ff.Frame{}, fmt.Errorf("%q: %w", ref, ff.ErrFrameNotFound)
	case 1:
		return a.edits.Live(matches[0]), nil
	default:
		return ff.Frame{}, fmt.Errorf("%q matches %d frames", ref, len(matches))
	}
}

func (a *App) ListFrames(projectRef string) ([]ff.Frame, error) {
	p, err := a.ResolveProject(projectRef)
	if err != nil {
		return nil, err
	}
	frames := a.service.Frames().List(p.ID)
	for i := range frames {
		frames[i] = a.edits.Live(frames[i])
	}
	return frames, nil
}

func (a *App) AddFrame(projectRef string, attrs ff.FramePatch) (ff.Frame, error) {
	p, err := a.ResolveProject(projectRef)
	if err != nil {
		return ff.Frame{}, err
	}
	return a.service.Frames().Add(p.ID, attrs)
}

func (a *App) InsertFrame(afterRef string, attrs ff.FramePatch) (ff.Frame, error) {
	anchor, err := a.ResolveFrame(afterRef)
	if err != nil {
		return ff.Frame{}, err
	}
	return a.service.Frames().InsertAfter(anchor.ID, attrs)
}

// UpdateFrame stages the patch in the edit buffer. It is committed after the
// quiet period, or at the latest on Close.
func (a *App) UpdateFrame(ref string, patch ff.FramePatch) (ff.Frame, error) {
	f, err := a.ResolveFrame(ref)
	if err != nil {
		return ff.Frame{}, err
	}
	if err := a.edits.Stage(f.ID, patch); err != nil {
		return ff.Frame{}, err
	}
	return patch.Applied(f), nil
}

func (a *App) DeleteFrame(ref string) error {
	f, err := a.ResolveFrame(ref)
	if err != nil {
		return err
	}
	return a.service.DeleteFrame(f.ID)
}

// ReorderFrames moves the frames to the positions given by refs, which must
// name every frame of the project exactly once.
func (a *App) ReorderFrames(projectRef string, refs []string) error {
	p, err := a.ResolveProject(projectRef)
	if err != nil {
		return err
	}
	current := a.service.Frames().List(p.ID)
	if len(refs) != len(current) {
		return &ff.ValidationError{Field: "order", Message: fmt.Sprintf("got %d frames, project has %d", len(refs), len(current))}
	}
	ids := make([]string, len(refs))
	seen := make(map[string]bool, len(refs))
	for i, ref := range refs {
		f, err := a.ResolveFrame(ref)
		if err != nil {
			return err
		}
		if f.ProjectID != p.ID {
			return &ff.ValidationError{Field: "order", Message: fmt.Sprintf("frame %s belongs to another project", f.ID)}
		}
		if seen[f.ID] {
			return &ff.ValidationError{Field: "order", Message: fmt.Sprintf("frame %s listed twice", f.ID)}
		}
		seen[f.ID] = true
		ids[i] = f.ID
	}
	return a.service.Frames().Reorder(p.ID, ids)
}

// SelectFrame selects a frame. An empty ref clears the selection.
func (a *App) SelectFrame(ref string) (ff.Frame, error) {
	if ref == "" {
		a.service.Frames().Select("")
		return ff.Frame{}, nil
	}
	f, err := a.ResolveFrame(ref)
	if err != nil {
		return ff.Frame{}, err
	}
	a.service.Frames().Select(f.ID)
	return f, nil
}

// Prompts

func (a *App) NarrativePrompt(frameRef string) (string, error) {
	f, err := a.ResolveFrame(frameRef)
	if err != nil {
		return "", err
	}
	return prompt.Narrative(f), nil
}

func (a *App) GridPrompt(projectRef string, size int) (string, error) {
	frames, err := a.ListFrames(projectRef)
	if err != nil {
		return "", err
	}
	return prompt.Grid(frames, size)
}

func (a *App) PromptTable(projectRef string) ([]prompt.Row, error) {
	frames, err := a.ListFrames(projectRef)
	if err != nil {
		return nil, err
	}
	return prompt.Table(frames), nil
}

// Generation

// modelAndRatio applies the configured defaults to empty values.
func (a *App) modelAndRatio(model, ratio string) (gateway.Model, gateway.AspectRatio) {
	if model == "" {
		model = a.cfg.Gateway.DefaultModel
	}
	if ratio == "" {
		ratio = a.cfg.Gateway.DefaultAspectRatio
	}
	return gateway.Model(model), gateway.AspectRatio(ratio)
}

// GenerateImage commits any pending edit of the frame and generates its image.
func (a *App) GenerateImage(ctx context.Context, frameRef, model, ratio string) (*ff.Frame, error) {
	f, err := a.ResolveFrame(frameRef)
	if err != nil {
		return nil, err
	}
	if err := a.edits.Flush(f.ID); err != nil {
		return nil, err
	}
	m, r := a.modelAndRatio(model, ratio)
	return a.service.GenerateImage(ctx, f.ID, m, r)
}

func (a *App) GenerateProjectImages(ctx context.Context, projectRef, model, ratio string) ([]ff.GenerationResult, error) {
	p, err := a.ResolveProject(projectRef)
	if err != nil {
		return nil, err
	}
	for _, f := range a.service.Frames().List(p.ID) {
		if err := a.edits.Flush(f.ID); err != nil {
			return nil, err
		}
	}
	m, r := a.modelAndRatio(model, ratio)
	return a.service.GenerateProjectImages(ctx, p.ID, m, r, a.cfg.Gateway.Concurrency)
}

// GenerateNextFrame continues the story from the frame as the user currently
// sees it, pending edits included.
func (a *App) GenerateNextFrame(ctx context.Context, frameRef string) (*ff.Frame, error) {
	f, err := a.ResolveFrame(frameRef)
	if err != nil {
		return nil, err
	}
	return a.service.GenerateNextFrame(ctx, f.ID, ff.NextFrameInput{
		Prompt:   f.Prompt,
		Speaker:  f.Speaker,
		Dialogue: f.Dialogue,
	})
}

// Images

// AttachImageFile stores the image at path for a frame.
func (a *App) AttachImageFile(frameRef, path string) (*ff.Frame, error) {
	f, err := a.ResolveFrame(frameRef)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > ff.MaxImageBytes {
		return nil, &ff.ValidationError{Field: "image", Message: "image must not exceed 10MB"}
	}
	return a.service.AttachImage(f.ID, encodeDataURI(data))
}

// ExportImageFile writes a frame's stored image to path.
func (a *App) ExportImageFile(frameRef, path string) error {
	f, err := a.ResolveFrame(frameRef)
	if err != nil {
		return err
	}
	payload, ok, err := a.service.LoadImage(f.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("frame %s has no image", f.ID)
	}
	data, err := decodeDataURI(payload)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return nil
}

func (a *App) RemoveImage(frameRef string) error {
	f, err := a.ResolveFrame(frameRef)
	if err != nil {
		return err
	}
	return a.service.RemoveImage(f.ID)
}

// PruneImages deletes stored images whose frame no longer exists and
// returns how many were removed.
func (a *App) PruneImages() (int, error) {
	ids, err := a.images.FrameIDs()
	if err != nil {
		return 0, fmt.Errorf("listing images: %w", err)
	}
	pruned := 0
	for _, id := range ids {
		if _, ok := a.service.Frames().Get(id); ok {
			continue
		}
		if err := a.images.DeleteImage(id); err != nil {
			return pruned, err
		}
		a.logger.Info("orphan image pruned", "frame", id)
		pruned++
	}
	return pruned, nil
}

// BackupDatabase copies the database to destPath.
func (a *App) BackupDatabase(destPath string) error {
	return a.store.BackupTo(destPath)
}

// Selection survives between invocations in a small file under the base dir.

func (a *App) selectionPath() string {
	return filepath.Join(a.cfg.BaseDir, SelectionFileName)
}

func (a *App) loadSelection() {
	data, err := os.ReadFile(a.selectionPath())
	if err != nil {
		return
	}
	id := strings.TrimSpace(string(data))
	if _, ok := a.service.Frames().Get(id); ok {
		a.service.Frames().Select(id)
	}
}

func (a *App) saveSelection() error {
	id, ok := a.service.Frames().Selected()
	if !ok {
		if err := os.Remove(a.selectionPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clearing selection: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(a.cfg.BaseDir, 0755); err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}
	if err := os.WriteFile(a.selectionPath(), []byte(id+"\n"), 0644); err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}
	return nil
}

// Close commits pending edits, saves the selection and closes all resources.
func (a *App) Close() error {
	var errs []error
	if a.edits != nil {
		if err := a.edits.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.service != nil {
		if err := a.saveSelection(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.op.Fail(err)
	}
	if a.op.Failed() {
		a.logger.Error("operation failed", "operation", a.op.Name, "error", a.op.Err)
	} else {
		a.logger.Debug("operation finished", "operation", a.op.Name)
	}
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var firstErr error
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
