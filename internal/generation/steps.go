package generation

import (
	"strings"

	"golang.org/x/text/language"
)

// Step identifiers emitted by the executor in current_step.
const (
	StepCharacters   = "characters"
	StepPortraits    = "portraits"
	StepEnvironments = "environments"
	StepPages        = "pages"
	StepConsistency  = "consistency"
	StepFixing       = "fixing"
	StepFinalizing   = "finalizing"
)

var englishSteps = map[string]string{
	StepCharacters:   "Extracting characters…",
	StepPortraits:    "Generating character portraits…",
	StepEnvironments: "Creating environment references…",
	StepPages:        "Illustrating pages…",
	StepConsistency:  "Reviewing for consistency…",
	StepFixing:       "Fixing inconsistencies…",
	StepFinalizing:   "Finalizing…",
}

var indonesianSteps = map[string]string{
	StepCharacters:   "Mengekstrak karakter…",
	StepPortraits:    "Membuat potret karakter…",
	StepEnvironments: "Menyiapkan referensi latar…",
	StepPages:        "Mengilustrasikan halaman…",
	StepConsistency:  "Memeriksa konsistensi…",
	StepFixing:       "Memperbaiki inkonsistensi…",
	StepFinalizing:   "Menyelesaikan…",
}

// Translate maps a step identifier to its English progress label. Unknown
// identifiers are returned unchanged.
func Translate(stepID string) string {
	return lookup(englishSteps, stepID)
}

func lookup(table map[string]string, stepID string) string {
	if label, ok := table[stepID]; ok {
		return label
	}
	return stepID
}

// Translator selects a label table by locale.
type Translator struct {
	matcher language.Matcher
	tables  []map[string]string
}

// NewTranslator builds a translator for the supported locales. The first
// supported tag (English) is the fallback for unmatched locales.
func NewTranslator() *Translator {
	return &Translator{
		matcher: language.NewMatcher([]language.Tag{language.English, language.Indonesian}),
		tables:  []map[string]string{englishSteps, indonesianSteps},
	}
}

// Label translates stepID for the given locale, e.g. "id", "en-US" or a raw
// Accept-Language header value.
func (t *Translator) Label(locale, stepID string) string {
	if t == nil {
		return Translate(stepID)
	}
	_, idx := language.MatchStrings(t.matcher, strings.TrimSpace(locale))
	if idx < 0 || idx >= len(t.tables) {
		idx = 0
	}
	return lookup(t.tables[idx], stepID)
}
