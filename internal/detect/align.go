package detect

import "strings"

// UtteranceSeparator joins utterance texts into one transcript string.
// Aligned detection offsets are valid against that concatenation, so a
// caller can redact the full transcript with the same offsets used for
// audio timing. Fixed at two characters.
const UtteranceSeparator = "\n\n"

// Aligner maps character-offset detections found in per-utterance transcript
// text onto each utterance's audio time range.
type Aligner struct {
	detector *Detector
}

// NewAligner creates an aligner backed by the given detector.
func NewAligner(detector *Detector) *Aligner {
	return &Aligner{detector: detector}
}

// Align runs detection over every utterance and returns detections carrying
// both transcript offsets and interpolated audio timestamps. The character
// offset within an utterance is converted to a fraction of the utterance
// length and interpolated linearly into [StartTime, EndTime]; offsets are
// shifted by a running cursor so they index into the transcript produced by
// JoinUtterances.
func (a *Aligner) Align(utterances []Utterance, minConfidence float64) []AlignedDetection {
	var aligned []AlignedDetection
	cursor := 0

	for _, u := range utterances {
		duration := u.EndTime - u.StartTime
		length := len(u.Text)

		for _, det := range a.detector.Detect(u.Text, minConfidence) {
			startFrac := 0.0
			endFrac := 1.0
			if length > 0 {
				startFrac = float64(det.StartOffset) / float64(length)
				endFrac = float64(det.EndOffset) / float64(length)
			}

			det.StartOffset += cursor
			det.EndOffset += cursor

			aligned = append(aligned, AlignedDetection{
				Detection: det,
				StartTime: u.StartTime + startFrac*duration,
				EndTime:   u.StartTime + endFrac*duration,
			})
		}

		cursor += length + len(UtteranceSeparator)
	}

	return aligned
}

// JoinUtterances concatenates utterance texts with UtteranceSeparator,
// producing the transcript string that aligned detection offsets refer to.
func JoinUtterances(utterances []Utterance) string {
	texts := make([]string, len(utterances))
	for i, u := range utterances {
		texts[i] = u.Text
	}
	return strings.Join(texts, UtteranceSeparator)
}
