// internal/app/system/fieldmap/enums.go
package fieldmap

import (
	"strings"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"golang.org/x/text/cases"
)

// EnumTable maps normalized input tokens to canonical values.
type EnumTable struct {
	Name string
	// Default is used for unrecognized tokens. An empty Default means the
	// field has no safe fallback.
	Default string
	// Suffix is an optional trailing word ignored when matching.
	Suffix string
	tokens map[string]string
}

// NewEnumTable builds a table from canonical value -> accepted tokens. Each
// canonical value is always accepted as its own token.
func NewEnumTable(name, def string, values map[string][]string) *EnumTable {
	t := &EnumTable{Name: name, Default: def, tokens: make(map[string]string)}
	for canon, toks := range values {
		t.tokens[normalizeToken(canon)] = canon
		for _, tok := range toks {
			t.tokens[normalizeToken(tok)] = canon
		}
	}
	return t
}

// Match returns the canonical value for token.
func (t *EnumTable) Match(token string) (string, bool) {
	n := normalizeToken(token)
	if v, ok := t.tokens[n]; ok {
		return v, true
	}
	if t.Suffix != "" {
		if trimmed, ok := strings.CutSuffix(n, " "+t.Suffix); ok {
			v, ok := t.tokens[trimmed]
			return v, ok
		}
	}
	return "", false
}

// normalizeToken folds case, treats '-' and '_' as spaces and collapses
// runs of whitespace.
func normalizeToken(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ConnectivityTable resolves internet connectivity levels.
var ConnectivityTable = NewEnumTable("connectivity", string(models.ConnectivityNone), map[string][]string{
	string(models.ConnectivityNone):      {"no", "no internet", "no access", "not available"},
	string(models.ConnectivityLimited):   {"poor", "low", "intermittent", "unreliable"},
	string(models.ConnectivityModerate):  {"fair", "average", "medium", "moderately reliable"},
	string(models.ConnectivityGood):      {"reliable", "stable", "high"},
	string(models.ConnectivityExcellent): {"very good", "very reliable", "fibre", "fiber"},
})

// SectorTable resolves institution sectors.
var SectorTable = NewEnumTable("sector", string(models.SectorOther), map[string][]string{
	string(models.SectorGovernment):    {"gov", "govt", "ministry", "public sector", "local authority"},
	string(models.SectorHealth):        {"hospital", "clinic", "health centre", "health center", "mohss"},
	string(models.SectorEducation):     {"school", "university", "college", "moe"},
	string(models.SectorPolice):        {"nampol", "gbv protection unit", "gbvpu", "police station"},
	string(models.SectorJustice):       {"court", "magistrate", "prosecutor", "legal aid", "moj"},
	string(models.SectorSocialWelfare): {"social welfare", "social services", "mgepesw", "gender ministry"},
	string(models.SectorNGO):           {"non governmental", "non governmental organization", "non governmental organisation", "csos", "cso"},
	string(models.SectorPrivate):       {"private sector", "business", "company"},
	string(models.SectorCommunity):     {"cbo", "community based", "community based organization", "faith based", "church"},
	string(models.SectorOther):         nil,
})

// RegionTable resolves region names and codes to region codes, accepting a
// trailing "region" word ("Khomas Region"). Regions have no safe default: an
// unmatched region fails the record.
var RegionTable = withSuffix(NewEnumTable("region", "", map[string][]string{
	"CA": {"zambezi", "caprivi", "ca"},
	"ER": {"erongo", "er"},
	"HA": {"hardap", "ha"},
	"KA": {"karas", "//karas", "kharas", "!karas", "ka"},
	"KE": {"kavango east", "ke"},
	"KW": {"kavango west", "kw"},
	"KH": {"khomas", "kh"},
	"KU": {"kunene", "ku"},
	"OW": {"ohangwena", "ow"},
	"OH": {"omaheke", "oh"},
	"OS": {"omusati", "os"},
	"ON": {"oshana", "on"},
	"OT": {"oshikoto", "ot"},
	"OD": {"otjozondjupa", "od"},
}), "region")

func withSuffix(t *EnumTable, suffix string) *EnumTable {
	t.Suffix = suffix
	return t
}
