package operation

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	op, ok := Lookup(Connect)
	require.True(t, ok)
	assert.Equal(t, "Send Connection Invites", op.Name)
	assert.Len(t, op.Fields, 5)

	_, ok = Lookup("follow")
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	op, _ := Lookup(Connect)
	d := Defaults(op)
	assert.Equal(t, 20, d[KeyDailyLimit])
	assert.Equal(t, 0, d[KeyMinMutual])
	assert.Equal(t, "", d[KeyJobTitle])
	assert.Equal(t, "", d[KeyPersonalNote])
}

func TestNormalize(t *testing.T) {
	t.Run("nil raw", func(t *testing.T) {
		assert.Nil(t, Normalize(nil))
	})

	t.Run("trims and coerces", func(t *testing.T) {
		cfg := Normalize(map[string]any{
			KeyJobTitle:     "  engineer ",
			KeyLocation:     " Berlin ",
			KeyMinMutual:    "3",
			KeyDailyLimit:   float64(15),
			KeyPersonalNote: "Hi {{firstName}}",
		})
		require.NotNil(t, cfg)
		assert.Equal(t, "engineer", cfg.JobTitleKeyword)
		assert.Equal(t, "Berlin", cfg.LocationKeyword)
		assert.Equal(t, 3, cfg.MinMutualConnections)
		assert.Equal(t, 15, cfg.DailyLimit)
		assert.Equal(t, "Hi {{firstName}}", cfg.PersonalNote)
	})

	t.Run("json numbers", func(t *testing.T) {
		var raw map[string]any
		dec := json.NewDecoder(strings.NewReader(`{"jobTitleKeyword":"x","dailyLimit":7,"minMutualConnections":2}`))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&raw))
		cfg := Normalize(raw)
		assert.Equal(t, 7, cfg.DailyLimit)
		assert.Equal(t, 2, cfg.MinMutualConnections)
	})

	t.Run("fractions are not truncated", func(t *testing.T) {
		cfg := Normalize(map[string]any{KeyJobTitle: "x", KeyDailyLimit: 2.5, KeyMinMutual: "1e20"})
		require.NotNil(t, cfg)
		assert.Equal(t, 0, cfg.DailyLimit)
		assert.Equal(t, 0, cfg.MinMutualConnections)
	})

	t.Run("missing daily limit stays unset", func(t *testing.T) {
		cfg := Normalize(map[string]any{KeyJobTitle: "x", KeyDailyLimit: "abc"})
		assert.Equal(t, 0, cfg.DailyLimit)
		assert.Equal(t, 0, cfg.MinMutualConnections)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ConnectConfig
		want string
	}{
		{"missing", nil, "Missing config."},
		{"no title", &ConnectConfig{DailyLimit: 5}, "Job title is required."},
		{"blank title", &ConnectConfig{JobTitleKeyword: "   ", DailyLimit: 5}, "Job title is required."},
		{"zero limit", &ConnectConfig{JobTitleKeyword: "eng"}, "Daily limit must be at least 1."},
		{"negative mutual", &ConnectConfig{JobTitleKeyword: "eng", DailyLimit: 1, MinMutualConnections: -1}, "Mutual connections cannot be negative."},
		{"valid", &ConnectConfig{JobTitleKeyword: "eng", DailyLimit: 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
		})
	}
}

func TestRenderNote(t *testing.T) {
	cfg := ConnectConfig{PersonalNote: "Hi {{firstName}}, I enjoyed your work, {{ fullName }}! {{company}}"}
	assert.Equal(t, "Hi Alex, I enjoyed your work, Alex Smith! {{company}}", cfg.RenderNote("Alex Smith"))

	empty := ConnectConfig{PersonalNote: "   "}
	assert.Equal(t, "", empty.RenderNote("Alex Smith"))
}

func TestRenderNoteNeverExceedsLimit(t *testing.T) {
	long := ConnectConfig{PersonalNote: strings.Repeat("{{fullName}} ", 60)}
	note := long.RenderNote("Maximilian Alexander von Hohenberg")
	assert.LessOrEqual(t, utf8.RuneCountInString(note), MaxNoteLength)

	multibyte := ConnectConfig{PersonalNote: strings.Repeat("é", 400)}
	note = multibyte.RenderNote("x")
	assert.Equal(t, MaxNoteLength, utf8.RuneCountInString(note))
	assert.True(t, utf8.ValidString(note))
}

func TestValidateForm(t *testing.T) {
	op, _ := Lookup(Connect)

	t.Run("valid", func(t *testing.T) {
		cleaned, errs := ValidateForm(op, map[string]any{
			KeyJobTitle:   "engineer",
			KeyDailyLimit: "25",
			KeyMinMutual:  float64(2),
			"unknown":     true,
		})
		assert.Nil(t, errs)
		assert.Equal(t, 25, cleaned[KeyDailyLimit])
		assert.Equal(t, 2, cleaned[KeyMinMutual])
		assert.Equal(t, "", cleaned[KeyLocation])
		assert.NotContains(t, cleaned, "unknown")
	})

	t.Run("field errors", func(t *testing.T) {
		_, errs := ValidateForm(op, map[string]any{
			KeyMinMutual:  float64(-1),
			KeyDailyLimit: "many",
		})
		require.NotNil(t, errs)
		assert.Equal(t, "This field is required.", errs[KeyJobTitle])
		assert.Equal(t, "Must be at least 0.", errs[KeyMinMutual])
		assert.Equal(t, "Enter a valid number.", errs[KeyDailyLimit])
		assert.Contains(t, errs.Error(), "jobTitleKeyword: This field is required.")
	})

	t.Run("fractions and overflow", func(t *testing.T) {
		for _, raw := range []any{"2.5", float64(2.5), "1e20", float64(1e300), int64(1) << 40, "NaN"} {
			_, errs := ValidateForm(op, map[string]any{KeyJobTitle: "eng", KeyDailyLimit: raw})
			assert.Equal(t, "Enter a valid number.", errs[KeyDailyLimit], "%v", raw)
		}

		cleaned, errs := ValidateForm(op, map[string]any{KeyJobTitle: "eng", KeyDailyLimit: "5.0"})
		assert.Nil(t, errs)
		assert.Equal(t, 5, cleaned[KeyDailyLimit])
	})

	t.Run("required number missing", func(t *testing.T) {
		cleaned, errs := ValidateForm(op, map[string]any{KeyJobTitle: "eng", KeyDailyLimit: ""})
		assert.Equal(t, "This field is required.", errs[KeyDailyLimit])
		assert.Nil(t, cleaned[KeyMinMutual])
	})
}
