package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeParametersRedactsSensitiveKeys(t *testing.T) {
	params := map[string]any{
		"url":      "https://example.com/login",
		"password": "hunter2",
		"token":    "tok-abc",
		"apiKey":   "key-123",
		"secret":   "shh",
	}

	got := SanitizeParameters(params)

	assert.Equal(t, "https://example.com/login", got["url"])
	for _, key := range []string{"password", "token", "apiKey", "secret"} {
		assert.Equal(t, RedactedMarker, got[key], "key %s must be redacted", key)
	}
	// Input map must not be mutated.
	assert.Equal(t, "hunter2", params["password"])
}

func TestSanitizeParametersCaseSensitiveMatch(t *testing.T) {
	got := SanitizeParameters(map[string]any{"Password": "visible", "apikey": "visible"})
	assert.Equal(t, "visible", got["Password"])
	assert.Equal(t, "visible", got["apikey"])
}

func TestSanitizeParametersScreenshotPlaceholder(t *testing.T) {
	got := SanitizeParameters(map[string]any{"screenshot": "iVBORw0KGgo..."})
	assert.Equal(t, ScreenshotPlaceholder, got["screenshot"])
}

func TestProcessResultTruncatesLargeFields(t *testing.T) {
	long := strings.Repeat("x", 5000)
	result := map[string]any{
		"html":    long,
		"content": long,
		"note":    long, // not a known large field, kept whole
	}

	got := ProcessResult("browser_click", result, false).(map[string]any)

	want := long[:1000] + TruncationMarker
	assert.Equal(t, want, got["html"])
	assert.Equal(t, want, got["content"])
	assert.Equal(t, long, got["note"])
}

func TestProcessResultFullCaptureForDataBearingTools(t *testing.T) {
	long := strings.Repeat("y", 5000)
	result := map[string]any{"content": long}

	// Data-bearing tool with full capture: verbatim.
	got := ProcessResult("browser_get_page_info", result, true).(map[string]any)
	assert.Equal(t, long, got["content"])

	// Same tool without full capture: truncated.
	got = ProcessResult("browser_get_page_info", result, false).(map[string]any)
	assert.Equal(t, long[:1000]+TruncationMarker, got["content"])

	// Non-data-bearing tool is truncated even under full capture.
	got = ProcessResult("browser_evaluate", result, true).(map[string]any)
	assert.Equal(t, long[:1000]+TruncationMarker, got["content"])
}

func TestProcessResultScreenshotAlwaysReplaced(t *testing.T) {
	result := map[string]any{"screenshot": "abc"}
	got := ProcessResult("browser_evaluate", result, false).(map[string]any)
	assert.Equal(t, ScreenshotPlaceholder, got["screenshot"])
}

func TestProcessResultNestedMaps(t *testing.T) {
	long := strings.Repeat("z", 2000)
	result := map[string]any{
		"data": map[string]any{"html": long},
	}
	got := ProcessResult("browser_click", result, false).(map[string]any)
	inner := got["data"].(map[string]any)
	assert.Equal(t, long[:1000]+TruncationMarker, inner["html"])
}

func TestProcessResultNonMapPassthrough(t *testing.T) {
	assert.Equal(t, "plain", ProcessResult("browser_click", "plain", false))
	assert.Nil(t, ProcessResult("browser_click", nil, false))
}
