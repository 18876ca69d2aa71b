package receiving

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// humanize turns an enum code such as VALUE_MISMATCH into "Value Mismatch".
// A Caser keeps state, so each call builds its own.
func humanize(code string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(code), "_", " "))
}

// Label returns the reason as shown in timeline entries
func (r RejectionReason) Label() string {
	return humanize(string(r))
}
