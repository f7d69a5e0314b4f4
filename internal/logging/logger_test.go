package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func reset(t *testing.T) *bytes.Buffer {
	t.Helper()
	CloseAll()
	buf := &bytes.Buffer{}
	prev := stderr
	stderr = zapcore.AddSync(buf)
	mu.Lock()
	cfg = Config{}
	initialized = false
	mu.Unlock()
	t.Cleanup(func() {
		CloseAll()
		stderr = prev
		mu.Lock()
		initialized = false
		mu.Unlock()
	})
	return buf
}

func TestNoopBeforeInitialize(t *testing.T) {
	buf := reset(t)
	Engine("should not appear")
	assert.False(t, IsCategoryEnabled(CategoryEngine))
	assert.Empty(t, buf.String())
}

func TestStderrModeRespectsLevel(t *testing.T) {
	buf := reset(t)
	require.NoError(t, Initialize(Config{Level: "warn", Format: "json"}))

	EngineDebug("debug line")
	Engine("info line")
	EngineWarn("warn line %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line 7")
	assert.Contains(t, out, `"category":"engine"`)

	SetLevel("debug")
	EngineDebug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestDisabledCategory(t *testing.T) {
	buf := reset(t)
	require.NoError(t, Initialize(Config{Level: "debug", Categories: map[string]bool{"adapter": false}}))

	assert.False(t, IsCategoryEnabled(CategoryAdapter))
	assert.True(t, IsCategoryEnabled(CategoryStore))
	Adapter("hidden")
	Store("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	reset(t)
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Initialize(Config{Level: "debug", Format: "console", DebugMode: true, Dir: dir}))
	assert.True(t, IsDebugMode())

	for _, cat := range Categories {
		Get(cat).Info("hello from %s", cat)
	}
	CloseAll()

	date := time.Now().Format("2006-01-02")
	for _, cat := range Categories {
		content, err := os.ReadFile(filepath.Join(dir, date+"_"+string(cat)+".log"))
		require.NoError(t, err, "category %s", cat)
		assert.True(t, strings.Contains(string(content), "hello from "+string(cat)))
	}
}

func TestDebugModeRequiresDir(t *testing.T) {
	reset(t)
	assert.Error(t, Initialize(Config{DebugMode: true}))
}

func TestWithFields(t *testing.T) {
	buf := reset(t)
	require.NoError(t, Initialize(Config{Level: "info"}))
	Get(CategoryControl).With("requestId", "abc").Info("handled")
	assert.Contains(t, buf.String(), `"requestId":"abc"`)
}

func TestTimerThreshold(t *testing.T) {
	buf := reset(t)
	require.NoError(t, Initialize(Config{Level: "info"}))
	timer := StartTimer(CategoryAdapter, "scrape")
	time.Sleep(2 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Nanosecond)
	assert.Greater(t, elapsed, time.Duration(0))
	assert.Contains(t, buf.String(), "scrape took")
}
