package etl

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeStore struct {
	files     map[string]string
	folios    map[string]struct{}
	batches   []Batch
	loadErr   error
	ensured   int
	integrity IntegrityReport
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string]string{}, folios: map[string]struct{}{}}
}

func (s *fakeStore) EnsureSchema(context.Context) error { s.ensured++; return nil }

func (s *fakeStore) ProcessedFiles(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) ExistingFolios(context.Context) (map[string]struct{}, error) {
	return s.folios, nil
}

func (s *fakeStore) Load(_ context.Context, b Batch) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.batches = append(s.batches, b)
	for _, r := range b.Principal {
		s.folios[r.Folio()] = struct{}{}
	}
	s.files[b.File.Filename] = b.File.Hash
	s.integrity.Principal += int64(len(b.Principal))
	s.integrity.Corporaciones += int64(len(b.Corporaciones))
	return nil
}

func (s *fakeStore) VerifyIntegrity(context.Context) (IntegrityReport, error) {
	return s.integrity, nil
}

func (s *fakeStore) Close() {}

// writeWorkbook stores an xlsx with the given rows on fs.
func writeWorkbook(t *testing.T, fs afero.Fs, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

var principalRows = [][]any{
	{"FOLIO", "FECHA", "CORPORACION", "COMENTARIOS", "TIPO", ""},
	{"F-1", "2023-03-09", "POLICIA", "llamada", "ROBO", ""},
	{"F-1", "2023-03-09", "BOMBEROS", "humo", "ROBO", ""},
	{},
	{"F-2", "fecha mala", "CRUZ ROJA", "", "LESIONADO", ""},
	{"", "2023-03-10", "POLICIA", "sin folio", "ROBO", ""},
}

func TestReadWorkbook(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWorkbook(t, fs, "DATA/incidentes.xlsx", [][]any{
		{" FOLIO ", "", "TIPO"},
		{"A", "x", "ROBO"},
		{},
		{"B", nil, 12},
	})

	sheet, err := ReadWorkbook(fs, "DATA/incidentes.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"FOLIO", "columna_2", "TIPO"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"A", "x", "ROBO"}, sheet.Rows[0])
	assert.Equal(t, "B", sheet.Rows[1][0])
	assert.Equal(t, "12", sheet.Rows[1][2])
}

func TestReadWorkbook_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := ReadWorkbook(fs, "missing.xlsx")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "broken.xlsx", []byte("not a zip"), 0o644))
	_, err = ReadWorkbook(fs, "broken.xlsx")
	assert.Error(t, err)
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("a.xlsx"))
	assert.True(t, IsWorkbook("DATA/b.XLS"))
	assert.False(t, IsWorkbook("~$a.xlsx"))
	assert.False(t, IsWorkbook("notes.csv"))
}

func TestFileHash(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "f", []byte("hello"), 0o644))
	h, err := FileHash(fs, "f")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", h)
}

func TestPipeline_Run(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWorkbook(t, fs, "DATA/incidentes.xlsx", principalRows)
	require.NoError(t, afero.WriteFile(fs, "DATA/~$incidentes.xlsx", []byte("lock"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "DATA/readme.txt", []byte("x"), 0o644))

	loaded := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	var progress []FileResult
	p := NewPipeline(fs, "DATA", store,
		WithClock(func() time.Time { return loaded }),
		WithProgress(func(r FileResult) { progress = append(progress, r) }))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	require.NotNil(t, summary.Integrity)
	assert.True(t, summary.Integrity.OK())
	assert.Equal(t, 1, store.ensured)

	require.Len(t, store.batches, 1)
	b := store.batches[0]
	require.Len(t, b.Principal, 2, "row without folio is skipped")
	assert.Equal(t, "F-1", b.Principal[0].Folio())
	assert.Equal(t, "humo | llamada", b.Principal[0]["comentarios"])
	assert.Equal(t, time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC), b.Principal[0]["fecha"])
	assert.Nil(t, b.Principal[1]["fecha"])
	assert.Equal(t, "incidentes.xlsx", b.Principal[0]["origen_archivo"])
	assert.Equal(t, loaded, b.Principal[0]["fecha_carga"])
	assert.Len(t, b.Corporaciones, 3)

	assert.Equal(t, "incidentes.xlsx", b.File.Filename)
	assert.Equal(t, VersionPrincipal, b.File.Version)
	assert.Equal(t, 2, b.File.Principal)
	assert.Equal(t, 3, b.File.Corporaciones)
	assert.Len(t, b.File.Hash, 32)

	require.Len(t, progress, 1)
	assert.Equal(t, OutcomeProcessed, progress[0].Outcome)

	// Unchanged file is skipped on the next run.
	summary, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, store.batches, 1)
}

func TestPipeline_ChangedFileLoadsOnlyNewFolios(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWorkbook(t, fs, "DATA/incidentes.xlsx", principalRows)
	store := newFakeStore()
	p := NewPipeline(fs, "DATA", store)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	writeWorkbook(t, fs, "DATA/incidentes.xlsx", append(principalRows, []any{"F-3", "", "POLICIA", "", "ROBO"}))
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	require.Len(t, store.batches, 2)
	second := store.batches[1]
	require.Len(t, second.Principal, 1)
	assert.Equal(t, "F-3", second.Principal[0].Folio())
	assert.Len(t, second.Corporaciones, 1)
}

func TestPipeline_Failures(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWorkbook(t, fs, "DATA/a.xlsx", principalRows)
	writeWorkbook(t, fs, "DATA/empty.xlsx", [][]any{{"FOLIO", "FECHA"}})
	require.NoError(t, afero.WriteFile(fs, "DATA/old.xls", []byte("binary"), 0o644))

	store := newFakeStore()
	var results []FileResult
	p := NewPipeline(fs, "DATA", store, WithProgress(func(r FileResult) { results = append(results, r) }))

	store.loadErr = errors.New("copy failed")
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 3, summary.Failed)

	require.Len(t, results, 3)
	assert.ErrorContains(t, results[0].Err, "copy failed")
	assert.ErrorIs(t, results[1].Err, ErrNoRows)
	assert.Error(t, results[2].Err)
	assert.Empty(t, store.files, "failed files are not registered")
}

func TestPipeline_MissingDir(t *testing.T) {
	p := NewPipeline(afero.NewMemMapFs(), "DATA", newFakeStore())
	_, err := p.Run(context.Background())
	assert.ErrorContains(t, err, "does not exist")
}

func TestPipeline_EmptyDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("DATA", 0o755))
	summary, err := NewPipeline(fs, "DATA", newFakeStore()).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed+summary.Skipped+summary.Failed)
	assert.Nil(t, summary.Integrity)
}
