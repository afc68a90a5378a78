package answer

import (
	"regexp"
	"strconv"
	"strings"
)

const insufficientMarker = "[INSUFFICIENT_CONTEXT]"

var confidenceLine = regexp.MustCompile(`(?im)^\s*confidence\s*:\s*(\d{1,3})\s*%?\s*$`)

// ModelOutput is the parsed completion: the answer text plus the model's own uncertainty signals.
type ModelOutput struct {
	Text               string
	ReportedConfidence *float64
	Insufficient       bool
}

func parseOutput(raw string) ModelOutput {
	out := ModelOutput{}
	text := raw

	if m := confidenceLine.FindAllStringSubmatchIndex(text, -1); len(m) > 0 {
		last := m[len(m)-1]
		if v, err := strconv.Atoi(text[last[2]:last[3]]); err == nil {
			f := clamp100(float64(v))
			out.ReportedConfidence = &f
		}
		text = text[:last[0]] + text[last[1]:]
	}

	if strings.Contains(text, insufficientMarker) {
		out.Insufficient = true
		text = strings.ReplaceAll(text, insufficientMarker, "")
	}

	out.Text = strings.TrimSpace(text)
	return out
}
