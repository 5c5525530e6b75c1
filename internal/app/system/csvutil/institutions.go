// internal/app/system/csvutil/institutions.go
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// ErrTooManyRows is returned when a file has more than MaxRows data rows.
var ErrTooManyRows = fmt.Errorf("CSV file has more than %d rows", MaxRows)

// Column names accepted in a header row.
const (
	ColName          = "name"
	ColRegion        = "region"
	ColSector        = "sector"
	ColAddress       = "address"
	ColContactPerson = "contact_person"
	ColContactEmail  = "contact_email"
	ColContactPhone  = "contact_phone"
)

// positional is the column order assumed when the file has no header.
var positional = []string{
	ColName, ColRegion, ColSector, ColAddress, ColContactPerson, ColContactEmail, ColContactPhone,
}

// headerAliases maps folded header cells to column names.
var headerAliases = map[string]string{
	"name":             ColName,
	"institution":      ColName,
	"institution_name": ColName,
	"region":           ColRegion,
	"region_code":      ColRegion,
	"sector":           ColSector,
	"address":          ColAddress,
	"contact_person":   ColContactPerson,
	"contact":          ColContactPerson,
	"contact_email":    ColContactEmail,
	"email":            ColContactEmail,
	"contact_phone":    ColContactPhone,
	"phone":            ColContactPhone,
}

// InstitutionRow is one validated data row.
type InstitutionRow struct {
	Line        int
	Institution models.Institution
}

// RowError describes a rejected row. Line 0 means the file as a whole.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParsedInstitutions holds the rows of an institution CSV.
type ParsedInstitutions struct {
	Rows   []InstitutionRow
	Errors []RowError
}

// HasErrors returns true if there are any validation errors.
func (p *ParsedInstitutions) HasErrors() bool {
	return len(p.Errors) > 0
}

// ParseInstitutions reads an institution CSV. A first row naming both a
// name and a region column is treated as a header and may order the
// columns freely; otherwise columns are name, region, sector, address,
// contact person, contact email, contact phone.
//
// Every row is validated before anything is returned so callers can reject
// the whole file without writing. Region codes are upper-cased but not
// checked against the region table; the caller does that.
func ParseInstitutions(r io.Reader) (ParsedInstitutions, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.TrimLeadingSpace = true

	var out ParsedInstitutions

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return out, nil // empty file
	}
	if err != nil {
		return out, err
	}
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], "\ufeff")
	}

	columns := positional
	line := 1
	pending := [][]string{}
	if hdr, ok := headerColumns(first); ok {
		columns = hdr
	} else {
		pending = append(pending, first)
	}

	seen := make(map[string]int) // folded name|region -> first line
	check := func(rec []string, line int) {
		row, rowErr := parseRow(columns, rec, line)
		switch {
		case rowErr != nil:
			out.Errors = append(out.Errors, *rowErr)
		case row == nil:
			// blank
		default:
			key := text.Fold(row.Institution.Name) + "|" + row.Institution.RegionCode
			if firstLine, dup := seen[key]; dup {
				out.Errors = append(out.Errors, RowError{
					Line:   line,
					Reason: fmt.Sprintf("duplicate institution (first appears on line %d)", firstLine),
				})
				return
			}
			seen[key] = line
			out.Rows = append(out.Rows, *row)
		}
	}

	for _, rec := range pending {
		check(rec, line)
	}
	for {
		rec, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			out.Errors = append(out.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if len(out.Rows)+len(out.Errors) >= MaxRows {
			return ParsedInstitutions{}, ErrTooManyRows
		}
		check(rec, line)
	}
	return out, nil
}

// headerColumns returns the column layout named by rec when rec is a header
// row.
func headerColumns(rec []string) ([]string, bool) {
	cols := make([]string, len(rec))
	var hasName, hasRegion bool
	for i, cell := range rec {
		key := strings.ReplaceAll(text.Fold(strings.TrimSpace(cell)), " ", "_")
		col := headerAliases[key]
		cols[i] = col
		hasName = hasName || col == ColName
		hasRegion = hasRegion || col == ColRegion
	}
	return cols, hasName && hasRegion
}

// parseRow validates one record. It returns nil, nil for a blank row.
func parseRow(columns []string, rec []string, line int) (*InstitutionRow, *RowError) {
	vals := make(map[string]string, len(columns))
	blank := true
	for i, col := range columns {
		if col == "" || i >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[i])
		if v != "" {
			blank = false
		}
		vals[col] = v
	}
	if blank {
		return nil, nil
	}

	inst := models.Institution{
		Name:          vals[ColName],
		RegionCode:    strings.ToUpper(vals[ColRegion]),
		Sector:        models.SectorOther,
		Address:       vals[ColAddress],
		ContactPerson: vals[ColContactPerson],
		ContactEmail:  vals[ColContactEmail],
		ContactPhone:  vals[ColContactPhone],
	}
	if inst.Name == "" {
		return nil, &RowError{Line: line, Reason: "missing institution name"}
	}
	if inst.RegionCode == "" {
		return nil, &RowError{Line: line, Reason: "missing region"}
	}
	if s := vals[ColSector]; s != "" {
		sector := models.Sector(strings.ReplaceAll(text.Fold(s), " ", "_"))
		if !sector.Valid() {
			return nil, &RowError{Line: line, Reason: fmt.Sprintf("unknown sector %q", s)}
		}
		inst.Sector = sector
	}
	if inst.ContactEmail != "" && !strings.Contains(inst.ContactEmail, "@") {
		return nil, &RowError{Line: line, Reason: fmt.Sprintf("invalid contact email %q", inst.ContactEmail)}
	}
	return &InstitutionRow{Line: line, Institution: inst}, nil
}
