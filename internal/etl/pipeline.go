// Package etl ingests incident workbooks into the principal and
// corporaciones tables.
package etl

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/appri/incidentdb/internal/debug"
)

// ErrNoRows is returned for workbooks without any usable data row.
var ErrNoRows = errors.New("no data rows")

// Outcome is what happened to a single file.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// FileResult describes one file of a run.
type FileResult struct {
	Name          string
	Outcome       Outcome
	Version       Version
	Principal     int
	Corporaciones int
	Err           error
}

// Summary is the result of a run.
type Summary struct {
	RunID     string           `json:"run_id"`
	Processed int              `json:"processed"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Integrity *IntegrityReport `json:"integrity,omitempty"`
}

// Pipeline ingests every workbook in a directory.
type Pipeline struct {
	fs       afero.Fs
	dir      string
	store    Store
	now      func() time.Time
	progress func(FileResult)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the load timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithProgress registers a callback invoked after each file.
func WithProgress(fn func(FileResult)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// NewPipeline creates a pipeline reading workbooks from dir on fs.
func NewPipeline(fs afero.Fs, dir string, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{fs: fs, dir: dir, store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsWorkbook reports whether name is a workbook worth ingesting. Office
// lock files ("~$...") are ignored.
func IsWorkbook(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".xlsx" || ext == ".xls"
}

// Files lists the workbooks in the data directory, sorted by name.
func (p *Pipeline) Files() ([]string, error) {
	entries, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", p.dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsWorkbook(e.Name()) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

// Run ingests every new or changed workbook and then checks integrity.
// Per-file failures are counted, not returned.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := debug.With("run_id", summary.RunID)

	if ok, err := afero.DirExists(p.fs, p.dir); err != nil || !ok {
		return nil, fmt.Errorf("data directory %s does not exist", p.dir)
	}
	if err := p.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	files, err := p.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("no workbooks found", "dir", p.dir)
		return summary, nil
	}

	processed, err := p.store.ProcessedFiles(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("starting ingest", "files", len(files), "already_processed", len(processed))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := p.ingest(ctx, log, name, processed)
		switch res.Outcome {
		case OutcomeProcessed:
			summary.Processed++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		if p.progress != nil {
			p.progress(res)
		}
	}

	report, err := p.store.VerifyIntegrity(ctx)
	if err != nil {
		log.Error("integrity check failed", "error", err)
	} else {
		summary.Integrity = &report
		log.Info("integrity checked",
			"principal", report.Principal, "corporaciones", report.Corporaciones, "orphans", report.Orphans)
		if !report.OK() {
			log.Warn("orphaned corporaciones rows found", "orphans", report.Orphans)
		}
	}

	log.Info("ingest finished", "processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

func (p *Pipeline) ingest(ctx context.Context, log *slog.Logger, name string, processed map[string]string) FileResult {
	path := filepath.Join(p.dir, name)
	hash, err := FileHash(p.fs, path)
	if err != nil {
		log.Error("failed to hash file", "file", name, "error", err)
		return FileResult{Name: name, Outcome: OutcomeFailed, Err: err}
	}
	if prev, ok := processed[name]; ok && prev == hash {
		log.Info("skipping already processed file", "file", name)
		return FileResult{Name: name, Outcome: OutcomeSkipped}
	}

	res, err := p.ProcessFile(ctx, path, hash)
	if err != nil {
		log.Error("failed to process file", "file", name, "error", err)
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	log.Info("file processed", "file", name, "version", res.Version,
		"principal", res.Principal, "corporaciones", res.Corporaciones)
	return res
}

// ProcessFile reads, transforms and loads a single workbook. Rows whose
// folio is already stored are left out.
func (p *Pipeline) ProcessFile(ctx context.Context, path, hash string) (FileResult, error) {
	name := filepath.Base(path)
	res := FileResult{Name: name}

	sheet, err := ReadWorkbook(p.fs, path)
	if err != nil {
		return res, err
	}
	res.Version = DetectVersion(name, sheet.Headers)

	loadedAt := p.now()
	records := make([]Record, 0, len(sheet.Rows))
	blankFolio := 0
	for _, row := range sheet.Rows {
		rec := TransformRow(row, res.Version, sheet.Headers, name, loadedAt)
		if strings.TrimSpace(rec.Folio()) == "" {
			blankFolio++
			continue
		}
		records = append(records, rec)
	}
	if blankFolio > 0 {
		debug.Warn("skipping rows without folio", "file", name, "rows", blankFolio)
	}
	if len(records) == 0 {
		return res, fmt.Errorf("%s: %w", name, ErrNoRows)
	}

	principal, corporaciones := Split(records)
	existing, err := p.store.ExistingFolios(ctx)
	if err != nil {
		return res, err
	}
	principal, corporaciones = FilterNew(principal, corporaciones, existing)
	res.Principal, res.Corporaciones = len(principal), len(corporaciones)

	err = p.store.Load(ctx, Batch{
		Principal:     principal,
		Corporaciones: corporaciones,
		File: FileRecord{
			Filename:      name,
			Hash:          hash,
			ProcessedAt:   loadedAt,
			Version:       res.Version,
			Principal:     res.Principal,
			Corporaciones: res.Corporaciones,
		},
	})
	if err != nil {
		return res, err
	}
	res.Outcome = OutcomeProcessed
	return res, nil
}

// FileHash returns the hex MD5 digest of a file, as stored in the registry.
func FileHash(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
