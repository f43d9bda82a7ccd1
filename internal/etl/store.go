package etl

import (
	"context"
	"time"
)

// FileRecord is an entry in the processed-files registry.
type FileRecord struct {
	Filename      string
	Hash          string
	ProcessedAt   time.Time
	Version       Version
	Principal     int
	Corporaciones int
}

// Batch is everything loaded for one workbook. Stores apply it atomically.
type Batch struct {
	Principal     []Record
	Corporaciones []Record
	File          FileRecord
}

// IntegrityReport summarizes the relationship between the two tables.
type IntegrityReport struct {
	Principal     int64 `json:"principal"`
	Corporaciones int64 `json:"corporaciones"`
	Orphans       int64 `json:"orphans"`
}

// OK reports whether every corporaciones row has a principal row.
func (r IntegrityReport) OK() bool { return r.Orphans == 0 }

// Store persists ingested incidents.
type Store interface {
	// EnsureSchema creates the tables, indexes and registry if missing.
	EnsureSchema(ctx context.Context) error

	// ProcessedFiles returns the last recorded hash per file name.
	ProcessedFiles(ctx context.Context) (map[string]string, error)

	// ExistingFolios returns every folio already in the principal table.
	ExistingFolios(ctx context.Context) (map[string]struct{}, error)

	// Load writes a batch and its registry entry in one transaction.
	Load(ctx context.Context, batch Batch) error

	// VerifyIntegrity counts rows and orphaned corporaciones.
	VerifyIntegrity(ctx context.Context) (IntegrityReport, error)

	Close()
}

const (
	createRegistryTable = `CREATE TABLE IF NOT EXISTS processed_files_split (
	id SERIAL PRIMARY KEY,
	filename VARCHAR(255),
	file_hash VARCHAR(32),
	processed_date TIMESTAMP,
	version_estructura VARCHAR(50),
	filas_principales INTEGER,
	filas_corporaciones INTEGER
)`

	createPrincipalTable = `CREATE TABLE IF NOT EXISTS principal (
	id SERIAL PRIMARY KEY,
	folio TEXT UNIQUE NOT NULL,
	fecha DATE,
	telefono TEXT, ubicacion TEXT, colonia TEXT, municipio TEXT, tipo TEXT,
	makedesc TEXT, model TEXT, color TEXT, vyr TEXT, vlic TEXT, st TEXT,
	additional TEXT, clsdesc TEXT, operador TEXT, despachador TEXT, unidad TEXT,
	div TEXT, chlname TEXT, chfname TEXT, origen TEXT, latitud TEXT, longitud TEXT,
	procedente TEXT, sector TEXT, personasinv TEXT, vehiculosinv TEXT,
	comentarios TEXT,
	fecha_carga TIMESTAMP,
	version_estructura TEXT,
	origen_archivo TEXT
)`

	createCorporacionesTable = `CREATE TABLE IF NOT EXISTS corporaciones (
	id SERIAL PRIMARY KEY,
	folio TEXT NOT NULL,
	corporacion TEXT, rcbd TEXT, desp TEXT, lleg TEXT, libr TEXT,
	t1 TEXT, t2 TEXT, t3 TEXT, t4 TEXT,
	tmptipificacion TEXT, tmpdespacho TEXT,
	fecha_carga TIMESTAMP,
	CONSTRAINT fk_corporaciones_principal FOREIGN KEY (folio)
		REFERENCES principal (folio) ON DELETE CASCADE ON UPDATE CASCADE
)`
)

// schemaStatements must all succeed.
var schemaStatements = []string{
	createRegistryTable,
	createPrincipalTable,
	createCorporacionesTable,
}

// indexStatements failures are logged and ignored.
var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_principal_folio ON principal (folio)",
	"CREATE INDEX IF NOT EXISTS idx_principal_fecha ON principal (fecha)",
	"CREATE INDEX IF NOT EXISTS idx_corporaciones_folio ON corporaciones (folio)",
	"CREATE INDEX IF NOT EXISTS idx_corporaciones_corporacion ON corporaciones (corporacion)",
}

const (
	selectProcessedFiles = "SELECT filename, file_hash FROM processed_files_split ORDER BY processed_date"
	selectFolios         = "SELECT DISTINCT folio FROM principal"
	insertFileRecord     = `INSERT INTO processed_files_split
	(filename, file_hash, processed_date, version_estructura, filas_principales, filas_corporaciones)
	VALUES ($1, $2, $3, $4, $5, $6)`
	countOrphans = `SELECT COUNT(*) FROM corporaciones c
	LEFT JOIN principal p ON c.folio = p.folio
	WHERE p.folio IS NULL`
	countPrincipal     = "SELECT COUNT(*) FROM principal"
	countCorporaciones = "SELECT COUNT(*) FROM corporaciones"
)
