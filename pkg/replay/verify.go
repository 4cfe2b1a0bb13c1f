package replay

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

// contentDriftThreshold is the fraction of content-length drift tolerated
// before a difference counts as significant. Small drift comes from
// dynamic content such as ads or timestamps; large drift signals real
// divergence.
const contentDriftThreshold = 0.10

// diffContentLimit bounds how much content feeds the unified diff detail.
const diffContentLimit = 2000

// Comparison is one verification entry: recorded outcome vs fresh outcome
// for a single action.
type Comparison struct {
	ActionID    string       `json:"actionId"`
	Tool        string       `json:"tool"`
	Match       bool         `json:"match"`
	Differences []Difference `json:"differences,omitempty"`
}

// Difference describes one divergence between the recorded and the fresh
// result. Only significant differences fail the comparison.
type Difference struct {
	Field       string `json:"field"`
	Original    any    `json:"original"`
	Current     any    `json:"current"`
	Significant bool   `json:"significant"`
	Detail      string `json:"detail,omitempty"`
}

// compareResults applies the tiered comparator. The shallow tier matches
// success flags; the deep tier (deep=true) additionally compares captured
// URL, title and content length.
func compareResults(action *session.ActionRecord, fresh *tools.Result, deep bool) Comparison {
	cmp := Comparison{ActionID: action.ID, Tool: action.Tool, Match: true}

	recordedSuccess := action.Error == ""
	if recordedSuccess != fresh.Success {
		cmp.Match = false
		cmp.Differences = append(cmp.Differences, Difference{
			Field:       "outcome",
			Original:    map[string]any{"result": action.Result, "error": action.Error},
			Current:     map[string]any{"data": fresh.Data, "error": fresh.Error},
			Significant: true,
		})
		return cmp
	}
	if !deep {
		return cmp
	}

	orig, origOK := action.Result.(map[string]any)
	cur, curOK := fresh.Data.(map[string]any)
	if !origOK || !curOK {
		return cmp
	}

	if origURL, curURL := stringField(orig, "url"), stringField(cur, "url"); origURL != curURL {
		cmp.Differences = append(cmp.Differences, Difference{
			Field: "url", Original: origURL, Current: curURL, Significant: true,
		})
	}

	// Titles are volatile on dynamic pages; the difference is recorded
	// but never significant.
	if origTitle, curTitle := stringField(orig, "title"), stringField(cur, "title"); origTitle != curTitle {
		cmp.Differences = append(cmp.Differences, Difference{
			Field: "title", Original: origTitle, Current: curTitle, Significant: false,
		})
	}

	origContent, curContent := stringField(orig, "content"), stringField(cur, "content")
	if origContent != curContent {
		origLen, curLen := len(origContent), len(curContent)
		significant := false
		if origLen > 0 {
			drift := math.Abs(float64(curLen-origLen)) / float64(origLen)
			significant = drift > contentDriftThreshold
		} else if curLen > 0 {
			significant = true
		}
		if origLen != curLen {
			cmp.Differences = append(cmp.Differences, Difference{
				Field:       "contentLength",
				Original:    origLen,
				Current:     curLen,
				Significant: significant,
				Detail:      contentDiff(origContent, curContent),
			})
		}
	}

	for _, d := range cmp.Differences {
		if d.Significant {
			cmp.Match = false
			break
		}
	}
	return cmp
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// contentDiff renders a bounded unified diff of the two content payloads
// as human-readable detail. An empty string means the diff could not be
// rendered; the length comparison above already carries the verdict.
func contentDiff(original, current string) string {
	if len(original) > diffContentLimit {
		original = original[:diffContentLimit]
	}
	if len(current) > diffContentLimit {
		current = current[:diffContentLimit]
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(current),
		FromFile: "recorded",
		ToFile:   "replayed",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return text
}
