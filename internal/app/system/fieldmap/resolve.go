// internal/app/system/fieldmap/resolve.go
package fieldmap

import (
	"fmt"
	"strings"

	"github.com/dalemusser/surveytrack/internal/domain/models"
)

// Resolver maps raw submissions onto Records using an alias table.
// A Resolver is safe for concurrent use.
type Resolver struct {
	table Table
}

// New returns a Resolver for the given table.
func New(table Table) *Resolver {
	return &Resolver{table: table}
}

// NewDefault returns a Resolver for DefaultTable.
func NewDefault() *Resolver {
	return New(DefaultTable)
}

// Resolve maps one raw submission. The returned Record always holds every
// field that could be resolved; err is non-nil only when an identifier is
// missing or the region is unknown, in which case the record must not be
// persisted.
func (rs *Resolver) Resolve(raw map[string]any) (Record, error) {
	rec := Record{}
	rec.Institution.Sector = models.SectorOther
	rec.Indicators.InternetConnectivity = models.ConnectivityNone

	leads, answered := 0, 0
	var regionRaw any
	for _, f := range rs.table {
		if f.Lead {
			leads++
		}
		v, ok := lookupAliases(raw, f.Aliases)
		if !ok {
			continue
		}
		if f.Lead {
			answered++
		}
		if f.Name == FieldRegion {
			regionRaw = v
		}
		apply(&rec, f, v)
	}
	rec.Complete = leads > 0 && answered == leads

	switch {
	case rec.SubmissionID == "":
		return rec, fmt.Errorf("%w: %s", ErrMissingIdentifier, FieldSubmissionID)
	case rec.Institution.Name == "":
		return rec, fmt.Errorf("%w: %s", ErrMissingIdentifier, FieldInstitutionName)
	case rec.Institution.RegionCode == "" && regionRaw == nil:
		return rec, fmt.Errorf("%w: %s", ErrMissingIdentifier, FieldRegion)
	case rec.Institution.RegionCode == "":
		return rec, fmt.Errorf("%w: %q", ErrUnknownRegion, describe(regionRaw))
	}
	return rec, nil
}

// lookupAliases returns the first non-blank value among aliases.
func lookupAliases(raw map[string]any, aliases []string) (any, bool) {
	for _, a := range aliases {
		if v, ok := lookup(raw, a); ok {
			return v, true
		}
	}
	return nil, false
}

// lookup tries alias as a flat key, then as a '/'-separated path through
// nested maps.
func lookup(raw map[string]any, alias string) (any, bool) {
	if v, ok := raw[alias]; ok && !isBlank(v) {
		return v, true
	}
	if !strings.Contains(alias, "/") {
		return nil, false
	}
	var cur any = raw
	for _, part := range strings.Split(alias, "/") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	if isBlank(cur) {
		return nil, false
	}
	return cur, true
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	}
	return false
}

func apply(rec *Record, f Field, v any) {
	switch f.Kind {
	case KindBool:
		*f.boolSlot(rec) = parseBool(v)

	case KindInt:
		if n, ok := parseInt(v); ok {
			*f.intSlot(rec) = n
		} else {
			rec.warn(f.Name, fmt.Sprintf("not a whole number: %q", describe(v)))
		}

	case KindOptionalInt:
		if n, ok := parseInt(v); ok {
			*f.optInt(rec) = &n
		} else {
			rec.warn(f.Name, fmt.Sprintf("not a whole number: %q", describe(v)))
		}

	case KindDecimal:
		if d, ok := parseDecimal(v); ok {
			*f.decSlot(rec) = &d
		} else {
			rec.warn(f.Name, fmt.Sprintf("not a number: %q", describe(v)))
		}

	case KindText:
		s, ok := parseText(v)
		if !ok {
			rec.warn(f.Name, "not a text value")
			return
		}
		if t, cut := truncate(s, f.MaxLen); cut {
			rec.warn(f.Name, fmt.Sprintf("truncated to %d characters", f.MaxLen))
			s = t
		}
		*f.textSlot(rec) = s

	case KindDate:
		if t, ok := parseDate(v); ok {
			*f.dateSlot(rec) = &t
		} else {
			rec.warn(f.Name, fmt.Sprintf("not a date: %q", describe(v)))
		}

	case KindEnum:
		s, _ := parseText(v)
		if canon, ok := f.Enum.Match(s); ok {
			f.enumSlot(rec, canon)
			return
		}
		if f.Enum.Default == "" {
			// no fallback; the caller decides whether this is fatal
			return
		}
		rec.warn(f.Name, fmt.Sprintf("unrecognized %s %q, using %q", f.Enum.Name, describe(v), f.Enum.Default))
		f.enumSlot(rec, f.Enum.Default)

	case KindGeopoint:
		if lat, lon, ok := parseGeopoint(v); ok {
			f.pointSlot(rec, lat, lon)
		} else {
			rec.warn(f.Name, fmt.Sprintf("not a coordinate pair: %q", describe(v)))
		}
	}
}
