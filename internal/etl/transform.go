package etl

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const commentSeparator = " | "

// Bookkeeping columns added to every record.
const (
	colFolio       = "folio"
	colFecha       = "fecha"
	colComentarios = "comentarios"
	colFechaCarga  = "fecha_carga"
	colVersion     = "version_estructura"
	colOrigen      = "origen_archivo"
)

// PrincipalColumns are the columns loaded into the principal table, in order.
var PrincipalColumns = []string{
	"folio", "fecha", "telefono", "ubicacion", "colonia", "municipio", "tipo", "makedesc",
	"model", "color", "vyr", "vlic", "st", "additional", "clsdesc", "operador", "despachador",
	"unidad", "div", "chlname", "chfname", "origen", "latitud", "longitud", "procedente",
	"sector", "personasinv", "vehiculosinv", "comentarios", "fecha_carga",
	"version_estructura", "origen_archivo",
}

// CorporacionesColumns are the columns loaded into the corporaciones table, in order.
var CorporacionesColumns = []string{
	"folio", "corporacion", "rcbd", "desp", "lleg", "libr", "t1", "t2", "t3", "t4",
	"tmptipificacion", "tmpdespacho", "fecha_carga",
}

// Record is one normalized incident row keyed by lower-case column name.
type Record map[string]any

// Folio returns the record's folio as text.
func (r Record) Folio() string {
	s, _ := r[colFolio].(string)
	return s
}

// Values projects the record onto columns; missing columns are nil.
func (r Record) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = r[c]
	}
	return out
}

// TransformRow maps a raw row to a normalized record using the layout's
// column mapping and stamps it with the load time, layout and source file.
// Values stay text except fecha, which is parsed to a date (nil when
// unparseable).
func TransformRow(row []string, version Version, headers []string, file string, loadedAt time.Time) Record {
	mapping := columnMappings[version]
	rec := make(Record, len(mapping)+3)
	for target, src := range mapping {
		var v string
		switch {
		case src.header != "":
			if i := slices.Index(headers, src.header); i >= 0 {
				v = cellAt(row, i)
			}
		case len(src.letters) == 1:
			v = cellAt(row, ColumnIndex(src.letters[0]))
		default:
			v = mergeColumns(row, src.letters)
		}
		rec[strings.ToLower(strings.TrimSpace(target))] = v
	}

	raw, _ := rec[colFecha].(string)
	if fecha, ok := ParseFecha(raw); ok {
		rec[colFecha] = fecha
	} else {
		rec[colFecha] = nil
	}
	rec[colFechaCarga] = loadedAt
	rec[colVersion] = string(version)
	rec[colOrigen] = file
	return rec
}

var fechaLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
}

// ParseFecha parses a date cell. Spreadsheet serial numbers are accepted as
// well as common textual layouts (month first when ambiguous). The time of
// day is dropped.
func ParseFecha(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return dateOnly(t), true
	}
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Split divides records into principal rows, one per folio in order of first
// appearance, and corporaciones rows, one per input record. A principal row
// carries the first record's fields with comentarios replaced by the sorted,
// distinct, non-empty comments of every record sharing its folio.
func Split(records []Record) (principal, corporaciones []Record) {
	comments := make(map[string]map[string]struct{})
	index := make(map[string]int)

	for _, rec := range records {
		folio := rec.Folio()
		set, ok := comments[folio]
		if !ok {
			set = make(map[string]struct{})
			comments[folio] = set
		}
		if c, _ := rec[colComentarios].(string); strings.TrimSpace(c) != "" {
			set[strings.TrimSpace(c)] = struct{}{}
		}
		if _, seen := index[folio]; !seen {
			index[folio] = len(principal)
			principal = append(principal, project(rec, PrincipalColumns))
		}
		corporaciones = append(corporaciones, project(rec, CorporacionesColumns))
	}

	for folio, i := range index {
		distinct := make([]string, 0, len(comments[folio]))
		for c := range comments[folio] {
			distinct = append(distinct, c)
		}
		slices.Sort(distinct)
		principal[i][colComentarios] = strings.Join(distinct, commentSeparator)
	}
	return principal, corporaciones
}

func project(rec Record, columns []string) Record {
	out := make(Record, len(columns))
	for _, c := range columns {
		if v, ok := rec[c]; ok {
			out[c] = v
		}
	}
	return out
}

// FilterNew drops principal rows whose folio already exists and keeps only
// the corporaciones rows belonging to the remaining folios.
func FilterNew(principal, corporaciones []Record, existing map[string]struct{}) ([]Record, []Record) {
	fresh := make(map[string]struct{}, len(principal))
	newPrincipal := make([]Record, 0, len(principal))
	for _, rec := range principal {
		if _, ok := existing[rec.Folio()]; ok {
			continue
		}
		fresh[rec.Folio()] = struct{}{}
		newPrincipal = append(newPrincipal, rec)
	}

	newCorporaciones := make([]Record, 0, len(corporaciones))
	for _, rec := range corporaciones {
		if _, ok := fresh[rec.Folio()]; ok {
			newCorporaciones = append(newCorporaciones, rec)
		}
	}
	return newPrincipal, newCorporaciones
}
