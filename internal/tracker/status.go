package tracker

import "strings"

// Canonical status keys shared across providers. Trackers report statuses in
// free-form, often localized text; feeds expose a stable key next to a
// display label so clients can group without string matching.
const (
	StatusKeyOpen       = "open"
	StatusKeyInProgress = "in_progress"
	StatusKeyClosed     = "closed"
)

var statusKeyAliases = map[string]string{
	"open":           StatusKeyOpen,
	"opened":         StatusKeyOpen,
	"reopened":       StatusKeyOpen,
	"offen":          StatusKeyOpen,
	"new":            StatusKeyOpen,
	"to do":          StatusKeyOpen,
	"todo":           StatusKeyOpen,
	"backlog":        StatusKeyOpen,
	"in progress":    StatusKeyInProgress,
	"in_progress":    StatusKeyInProgress,
	"in bearbeitung": StatusKeyInProgress,
	"doing":          StatusKeyInProgress,
	"in review":      StatusKeyInProgress,
	"closed":         StatusKeyClosed,
	"close":          StatusKeyClosed,
	"geschlossen":    StatusKeyClosed,
	"done":           StatusKeyClosed,
	"resolved":       StatusKeyClosed,
	"complete":       StatusKeyClosed,
	"completed":      StatusKeyClosed,
	"fertig":         StatusKeyClosed,
}

var statusKeyLabels = map[string]string{
	StatusKeyOpen:       "Open",
	StatusKeyInProgress: "In Progress",
	StatusKeyClosed:     "Closed",
}

// NormalizeStatus maps a raw tracker status to a (key, label) pair. Known
// statuses, including common localized spellings, collapse onto canonical
// keys; unknown statuses slug into the key with the raw text as label.
func NormalizeStatus(raw string) (string, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "unknown", "Unknown"
	}
	lowered := strings.ToLower(trimmed)
	if key, ok := statusKeyAliases[lowered]; ok {
		return key, statusKeyLabels[key]
	}
	slug := strings.ReplaceAll(lowered, " ", "_")
	return slug, trimmed
}
