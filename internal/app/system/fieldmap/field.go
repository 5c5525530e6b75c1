// internal/app/system/fieldmap/field.go
package fieldmap

import "time"

// Kind is the canonical type of a field.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindOptionalInt
	KindDecimal
	KindText
	KindDate
	KindEnum
	KindGeopoint
)

// Field binds a canonical name and its aliases to a slot in Record.
type Field struct {
	Name    string
	Kind    Kind
	Aliases []string

	// Lead fields decide completeness: a record is complete when all of
	// them were answered.
	Lead bool

	// MaxLen is the storage limit for text fields, in runes.
	MaxLen int
	// Enum is the token table for enum fields.
	Enum *EnumTable

	boolSlot  func(*Record) *bool
	intSlot   func(*Record) *int
	optInt    func(*Record) **int
	decSlot   func(*Record) **float64
	textSlot  func(*Record) *string
	dateSlot  func(*Record) **time.Time
	enumSlot  func(*Record, string)
	pointSlot func(*Record, float64, float64)
}

// Table is an ordered list of fields.
type Table []Field

// Bool declares a boolean field.
func Bool(name string, slot func(*Record) *bool, aliases ...string) Field {
	return Field{Name: name, Kind: KindBool, Aliases: aliases, boolSlot: slot}
}

// Int declares an integer field that defaults to zero.
func Int(name string, slot func(*Record) *int, aliases ...string) Field {
	return Field{Name: name, Kind: KindInt, Aliases: aliases, intSlot: slot}
}

// OptionalInt declares an integer field that stays nil when unanswered.
func OptionalInt(name string, slot func(*Record) **int, aliases ...string) Field {
	return Field{Name: name, Kind: KindOptionalInt, Aliases: aliases, optInt: slot}
}

// Decimal declares an optional decimal field.
func Decimal(name string, slot func(*Record) **float64, aliases ...string) Field {
	return Field{Name: name, Kind: KindDecimal, Aliases: aliases, decSlot: slot}
}

// Text declares a free-text field truncated to maxLen runes.
func Text(name string, maxLen int, slot func(*Record) *string, aliases ...string) Field {
	return Field{Name: name, Kind: KindText, Aliases: aliases, MaxLen: maxLen, textSlot: slot}
}

// Date declares an optional timestamp field.
func Date(name string, slot func(*Record) **time.Time, aliases ...string) Field {
	return Field{Name: name, Kind: KindDate, Aliases: aliases, dateSlot: slot}
}

// Enum declares a field whose value must be one of the table's tokens.
func Enum(name string, table *EnumTable, slot func(*Record, string), aliases ...string) Field {
	return Field{Name: name, Kind: KindEnum, Aliases: aliases, Enum: table, enumSlot: slot}
}

// Geopoint declares a latitude/longitude pair field.
func Geopoint(name string, slot func(*Record, float64, float64), aliases ...string) Field {
	return Field{Name: name, Kind: KindGeopoint, Aliases: aliases, pointSlot: slot}
}

// AsLead marks the field as a lead indicator.
func (f Field) AsLead() Field {
	f.Lead = true
	return f
}

// Lookup returns the field with the given canonical name.
func (t Table) Lookup(name string) (Field, bool) {
	for _, f := range t {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the canonical names of all fields of kind k.
func (t Table) Names(k Kind) []string {
	var out []string
	for _, f := range t {
		if f.Kind == k {
			out = append(out, f.Name)
		}
	}
	return out
}
