package session

// Markers written into records in place of payloads that must not be stored.
const (
	RedactedMarker        = "[REDACTED]"
	ScreenshotPlaceholder = "[SCREENSHOT_DATA]"
	TruncationMarker      = "...[truncated]"
)

// truncateThreshold is the maximum stored length, in characters, of a
// large-payload string field under truncating capture.
const truncateThreshold = 1000

// sensitiveKeys are parameter names redacted unconditionally, under both
// capture modes. Matching is case-sensitive and exact.
var sensitiveKeys = map[string]struct{}{
	"password": {},
	"token":    {},
	"apiKey":   {},
	"secret":   {},
}

// dataBearingTools are tools whose result payload is the whole point of the
// recording. Under full capture their results are stored verbatim.
var dataBearingTools = map[string]struct{}{
	"browser_navigate":         {},
	"browser_screenshot":       {},
	"browser_get_page_info":    {},
	"browser_get_element_text": {},
	"browser_get_markdown":     {},
}

// largeFields are the known large-payload string fields subject to
// truncation when full capture does not apply.
var largeFields = map[string]struct{}{
	"html":     {},
	"content":  {},
	"markdown": {},
}

// SanitizeParameters returns a copy of params with sensitive values redacted
// and screenshot payloads replaced by a placeholder. Binary screenshot data
// never travels through the parameter channel. It never fails; unknown
// fields pass through unchanged.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if _, sensitive := sensitiveKeys[k]; sensitive {
			out[k] = RedactedMarker
			continue
		}
		if k == "screenshot" {
			out[k] = ScreenshotPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}

// ProcessResult applies the capture policy to a tool's success payload.
// When full capture is on and the tool is data-bearing, the result is kept
// verbatim. Otherwise large string fields are truncated and screenshot
// payloads replaced with a placeholder.
func ProcessResult(tool string, result any, captureFull bool) any {
	if result == nil {
		return nil
	}
	if captureFull {
		if _, ok := dataBearingTools[tool]; ok {
			return result
		}
	}
	return truncateValue(result)
}

func truncateValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		if k == "screenshot" {
			out[k] = ScreenshotPlaceholder
			continue
		}
		if s, isString := val.(string); isString {
			if _, large := largeFields[k]; large && len(s) > truncateThreshold {
				out[k] = s[:truncateThreshold] + TruncationMarker
				continue
			}
		}
		if nested, isMap := val.(map[string]any); isMap {
			out[k] = truncateValue(nested)
			continue
		}
		out[k] = val
	}
	return out
}
