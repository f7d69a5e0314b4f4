package operation

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"outreach/internal/types"
)

// Persisted configuration keys of the connect operation.
const (
	KeyJobTitle     = "jobTitleKeyword"
	KeyLocation     = "locationKeyword"
	KeyMinMutual    = "minMutualConnections"
	KeyDailyLimit   = "dailyLimit"
	KeyPersonalNote = "personalNote"
)

// MaxNoteLength is the longest note LinkedIn accepts on an invitation.
const MaxNoteLength = 295

// ConnectConfig is the normalized configuration of the connect operation.
type ConnectConfig struct {
	JobTitleKeyword      string `json:"jobTitleKeyword"`
	LocationKeyword      string `json:"locationKeyword"`
	MinMutualConnections int    `json:"minMutualConnections"`
	DailyLimit           int    `json:"dailyLimit"`
	PersonalNote         string `json:"personalNote"`
}

// ValidationError is returned for a configuration that must not start a run.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Normalize converts a stored raw configuration into a ConnectConfig.
// Strings are trimmed and numbers are coerced from JSON numbers or numeric
// strings. A missing or non-numeric daily limit is left at zero so that
// Validate rejects it. Normalize returns nil for a nil raw value.
func Normalize(raw map[string]any) *ConnectConfig {
	if raw == nil {
		return nil
	}
	cfg := &ConnectConfig{
		JobTitleKeyword: strings.TrimSpace(stringValue(raw[KeyJobTitle])),
		LocationKeyword: strings.TrimSpace(stringValue(raw[KeyLocation])),
		PersonalNote:    stringValue(raw[KeyPersonalNote]),
	}
	if n, ok := numberValue(raw[KeyMinMutual]); ok {
		cfg.MinMutualConnections = n
	}
	if n, ok := numberValue(raw[KeyDailyLimit]); ok {
		cfg.DailyLimit = n
	}
	return cfg
}

// Validate reports whether cfg may be used for a run.
func Validate(cfg *ConnectConfig) error {
	if cfg == nil {
		return &ValidationError{Message: "Missing config."}
	}
	if strings.TrimSpace(cfg.JobTitleKeyword) == "" {
		return &ValidationError{Message: "Job title is required."}
	}
	if cfg.DailyLimit < 1 {
		return &ValidationError{Message: "Daily limit must be at least 1."}
	}
	if cfg.MinMutualConnections < 0 {
		return &ValidationError{Message: "Mutual connections cannot be negative."}
	}
	return nil
}

// Values returns the persisted shape of cfg.
func (c ConnectConfig) Values() map[string]any {
	return map[string]any{
		KeyJobTitle:     c.JobTitleKeyword,
		KeyLocation:     c.LocationKeyword,
		KeyMinMutual:    c.MinMutualConnections,
		KeyDailyLimit:   c.DailyLimit,
		KeyPersonalNote: c.PersonalNote,
	}
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*(firstName|fullName)\s*\}\}`)

// RenderNote fills the note template for a candidate and caps the result at
// MaxNoteLength characters. Unknown placeholders are left untouched.
func (c ConnectConfig) RenderNote(fullName string) string {
	if strings.TrimSpace(c.PersonalNote) == "" {
		return ""
	}
	fullName = strings.TrimSpace(fullName)
	firstName := types.FirstToken(fullName)
	rendered := placeholderPattern.ReplaceAllStringFunc(c.PersonalNote, func(m string) string {
		if strings.Contains(m, "firstName") {
			return firstName
		}
		return fullName
	})
	return TruncateNote(strings.TrimSpace(rendered))
}

// TruncateNote caps note at MaxNoteLength characters.
func TruncateNote(note string) string {
	if utf8.RuneCountInString(note) <= MaxNoteLength {
		return note
	}
	runes := []rune(note)
	return string(runes[:MaxNoteLength])
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// numberValue coerces v into an int. Empty strings count as zero, matching
// how the options form stores a cleared number input. Fractions and values
// outside the int32 range are rejected.
func numberValue(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return wholeNumber(float64(t))
	case int64:
		return wholeNumber(float64(t))
	case float64:
		return wholeNumber(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return wholeNumber(f)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return wholeNumber(f)
	default:
		return 0, false
	}
}

// wholeNumber converts f to an int when it is a finite integer that fits in
// an int32.
func wholeNumber(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
