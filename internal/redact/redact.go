// Package redact rewrites text by replacing detected sensitive spans with a
// placeholder token.
package redact

import (
	"sort"
	"strings"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
)

// DefaultPlaceholder is substituted for redacted spans when the caller does
// not supply its own token.
const DefaultPlaceholder = "[REDACTED]"

// Range is a half-open character span [StartOffset, EndOffset) to redact.
type Range struct {
	StartOffset int `json:"startOffset"`
	EndOffset   int `json:"endOffset"`
}

// Apply replaces every range in text with placeholder. Ranges may arrive in
// any order: they are applied descending by start offset so earlier splices
// never invalidate the offsets of ranges still to be applied. Out-of-bounds
// ranges are clamped and empty or inverted ranges are skipped.
func Apply(text string, ranges []Range, placeholder string) string {
	if len(ranges) == 0 {
		return text
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartOffset > sorted[j].StartOffset
	})

	var b strings.Builder
	result := text
	for _, r := range sorted {
		start := r.StartOffset
		end := r.EndOffset
		if start < 0 {
			start = 0
		}
		if end > len(result) {
			end = len(result)
		}
		if start >= end {
			continue
		}

		b.Reset()
		b.Grow(len(result) - (end - start) + len(placeholder))
		b.WriteString(result[:start])
		b.WriteString(placeholder)
		b.WriteString(result[end:])
		result = b.String()
	}

	return result
}

// Spans converts detections into redaction ranges.
func Spans(detections []detect.Detection) []Range {
	ranges := make([]Range, len(detections))
	for i, det := range detections {
		ranges[i] = Range{StartOffset: det.StartOffset, EndOffset: det.EndOffset}
	}
	return ranges
}
