package etl

import (
	"regexp"
	"strings"
)

// Version identifies the column layout of a source workbook.
type Version string

const (
	// VersionPrincipal workbooks carry the canonical header names.
	VersionPrincipal Version = "principal"
	// Version2024 workbooks use the 2024 export layout, addressed by column letter.
	Version2024 Version = "2024"
	// VersionLegacy covers the 2015-2023 export layout, addressed by column letter.
	VersionLegacy Version = "2015-2023"
)

var yearPattern = regexp.MustCompile(`20(1[5-9]|2[0-4])`)

// Headers whose presence marks a 2024-layout workbook.
var layout2024Indicators = []string{"FOLIO_LLAMADA", "NUMERO_TELEFONO", "COORDENADA_X", "TIEMPO_DESPACHO"}

// source locates a target column in a row: by header name, or by one or more
// column letters whose values are merged.
type source struct {
	header  string
	letters []string
}

func byHeader(h string) source     { return source{header: h} }
func byLetters(l ...string) source { return source{letters: l} }

// targetColumns is the full set of normalized columns, in load order.
var targetColumns = []string{
	"FOLIO", "FECHA", "TELEFONO", "UBICACION", "COLONIA", "MUNICIPIO",
	"RCBD", "DESP", "LLEG", "LIBR", "T1", "T2", "T3", "T4",
	"CORPORACION", "TIPO", "MAKEDESC", "MODEL", "COLOR", "VYR", "VLIC", "ST",
	"ADDITIONAL", "CLSDESC", "OPERADOR", "DESPACHADOR", "UNIDAD", "DIV",
	"COMENTARIOS", "CHLNAME", "CHFNAME", "ORIGEN", "LATITUD", "LONGITUD",
	"PROCEDENTE", "MTVOCIERRE", "NOTACIERRE", "SECTOR", "NOTASUSR",
	"PERSONASINV", "VEHICULOSINV", "TMPTIPIFICACION", "TMPDESPACHO",
}

// columnMappings maps each layout to the source of every target column it
// provides. Columns a layout lacks are simply absent.
var columnMappings = map[Version]map[string]source{
	VersionPrincipal: principalMapping(),
	Version2024: {
		"FOLIO":       byLetters("A"),
		"FECHA":       byLetters("B"),
		"TELEFONO":    byLetters("AB"),
		"UBICACION":   byLetters("M"),
		"COLONIA":     byLetters("N"),
		"MUNICIPIO":   byLetters("L"),
		"RCBD":        byLetters("I"),
		"DESP":        byLetters("AS"),
		"LLEG":        byLetters("AT"),
		"LIBR":        byLetters("AU"),
		"CORPORACION": byLetters("AN"),
		"TIPO":        byLetters("X"),
		"MAKEDESC":    byLetters("BQ"),
		"MODEL":       byLetters("BR"),
		"COLOR":       byLetters("BV"),
		"VYR":         byLetters("BU"),
		"VLIC":        byLetters("BN"),
		"ADDITIONAL":  byLetters("BP"),
		"CLSDESC":     byLetters("AE"),
		"OPERADOR":    byLetters("AY"),
		"DESPACHADOR": byLetters("AZ"),
		"UNIDAD":      byLetters("CO"),
		"COMENTARIOS": byLetters("AM", "AP"),
		"CHFNAME":     byLetters("BG"),
		"ORIGEN":      byLetters("AA"),
		"LATITUD":     byLetters("S"),
		"LONGITUD":    byLetters("T"),
	},
	VersionLegacy: {
		"FOLIO":       byLetters("S"),
		"FECHA":       byLetters("B"),
		"TELEFONO":    byLetters("D"),
		"UBICACION":   byLetters("J"),
		"COLONIA":     byLetters("K"),
		"MUNICIPIO":   byLetters("I"),
		"RCBD":        byLetters("C"),
		"DESP":        byLetters("AC"),
		"LLEG":        byLetters("AD"),
		"LIBR":        byLetters("AE"),
		"CORPORACION": byLetters("R"),
		"TIPO":        byLetters("E"),
		"CLSDESC":     byLetters("X"),
		"OPERADOR":    byLetters("AI"),
		"DESPACHADOR": byLetters("AJ"),
		"COMENTARIOS": byLetters("Q", "Y"),
		"CHFNAME":     byLetters("AT"),
		"ORIGEN":      byLetters("AO"),
		"LATITUD":     byLetters("O"),
		"LONGITUD":    byLetters("P"),
	},
}

func principalMapping() map[string]source {
	m := make(map[string]source, len(targetColumns))
	for _, c := range targetColumns {
		m[c] = byHeader(c)
	}
	return m
}

// DetectVersion infers the layout of a workbook from a year in its file name
// and, for 2024 files, from the headers it carries.
func DetectVersion(filename string, headers []string) Version {
	year := yearPattern.FindString(filename)
	switch {
	case year == "":
		return VersionPrincipal
	case year == "2024":
		found := 0
		for _, h := range headers {
			for _, ind := range layout2024Indicators {
				if strings.Contains(h, ind) {
					found++
					break
				}
			}
		}
		if found >= 3 {
			return Version2024
		}
		return VersionPrincipal
	default:
		return VersionLegacy
	}
}

// ColumnIndex converts a spreadsheet column reference ("A", "AB") to a
// 0-based index. It returns -1 for references containing non-letters.
func ColumnIndex(ref string) int {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return -1
	}
	idx := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			return -1
		}
		idx = idx*26 + int(r-'A') + 1
	}
	return idx - 1
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// mergeColumns joins the trimmed non-empty values of several columns.
func mergeColumns(row []string, letters []string) string {
	parts := make([]string, 0, len(letters))
	for _, l := range letters {
		if v := strings.TrimSpace(cellAt(row, ColumnIndex(l))); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, commentSeparator)
}
