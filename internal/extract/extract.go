// Package extract turns loosely structured model output into canonical
// answer strings. Extraction is best-effort and benchmark-specific by design:
// each answer format runs an ordered cascade of pattern matchers and the
// first match wins. An empty result means "no extractable answer", which
// callers must treat as distinct from a wrong answer.
package extract

import (
	"regexp"
	"strings"

	"github.com/disputalabs/disputa/internal/core"
)

var (
	// Marker search, highest priority first. A trailing "Final Answer:" beats
	// a plain "Answer:".
	finalMarkerRe = regexp.MustCompile(`(?is)final answer:\s*(.+)`)
	plainMarkerRe = regexp.MustCompile(`(?is)answer:\s*(.+)`)

	letterFinalRe = regexp.MustCompile(`(?i)final answer:\s*\*{0,5}([A-Za-z])`)
	letterPlainRe = regexp.MustCompile(`(?i)answer:\s*\*{0,5}([A-Za-z])`)

	signedIntRe   = regexp.MustCompile(`[-+]?\d+`)
	placeholderRe = regexp.MustCompile(`^\[[^\]]*\]`)
	wordRe        = regexp.MustCompile(`[A-Za-z]+`)

	// Custom-format cascade, ported pattern for pattern from the reference
	// extractor: solution tags (marker-anchored before free-standing), bold
	// markers (2-5 asterisks), plain text, then comma-separated lists.
	customSolutionFinalRe = regexp.MustCompile(`(?is)final answer:\s+<solution>(.*?)</solution>`)
	customSolutionRe      = regexp.MustCompile(`(?is)answer:\s+<solution>(.*?)</solution>`)
	customSolutionAnyRe   = regexp.MustCompile(`(?is)<solution>(.*?)</solution>`)
	customBoldFinalRe     = regexp.MustCompile(`(?i)final answer:\s+\*{2,5}(.*?)\*{2,5}`)
	customBoldRe          = regexp.MustCompile(`(?i)answer:\s+\*{2,5}(.*?)\*{2,5}`)
	customPlainFinalRe    = regexp.MustCompile(`(?i)final answer:\s+([\w\d\s,.;]+)`)
	customPlainRe         = regexp.MustCompile(`(?i)answer:\s+([\w\d\s,.;]+)`)
	customListRe          = regexp.MustCompile(`(?i)answer:\s+((?:[\w-]+(?:,\s*[\w-]+)+))`)
)

// Extract returns the canonical answer found in text for the given format,
// or "" when no pattern matches.
func Extract(text string, format core.AnswerFormat) string {
	switch format {
	case core.FormatLetter:
		return extractLetter(text)
	case core.FormatInteger:
		return extractInteger(text)
	case core.FormatWord:
		return extractWord(text)
	default:
		return extractCustom(text)
	}
}

// FromTranscript scans a result transcript in reverse and returns the first
// extractable answer, mirroring how the final reported answer is chosen.
func FromTranscript(msgs []core.Message, format core.AnswerFormat) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if answer := Extract(msgs[i].Content, format); answer != "" {
			return answer
		}
	}
	return ""
}

func extractLetter(text string) string {
	for _, re := range []*regexp.Regexp{letterFinalRe, letterPlainRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

func extractInteger(text string) string {
	span, ok := markerSpan(text)
	if !ok {
		return ""
	}
	span = stripEmphasis(span)
	// Bracketed placeholders ("[still working]") mean the agent has not
	// committed to an answer yet. Reporting them as answers would let
	// convergence fire on two "no answer yet" turns.
	if placeholderRe.MatchString(span) {
		return ""
	}
	return signedIntRe.FindString(span)
}

func extractWord(text string) string {
	span, ok := markerSpan(text)
	if !ok {
		return ""
	}
	return wordRe.FindString(stripEmphasis(span))
}

func extractCustom(text string) string {
	for _, re := range []*regexp.Regexp{
		customSolutionFinalRe,
		customSolutionRe,
		customSolutionAnyRe,
		customBoldFinalRe,
		customBoldRe,
		customPlainFinalRe,
	} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	// A plain "Answer:" span only counts when it is short enough to be an
	// actual answer rather than prose that happens to mention the word.
	if m := customPlainRe.FindStringSubmatch(text); m != nil {
		answer := strings.TrimSpace(m[1])
		if len(strings.Fields(answer)) <= 15 {
			return answer
		}
	}

	if m := customListRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

// markerSpan captures the text after the highest-priority answer marker.
func markerSpan(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{finalMarkerRe, plainMarkerRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// stripEmphasis removes markdown bold/italic markers around a captured value.
func stripEmphasis(s string) string {
	return strings.TrimSpace(strings.Trim(s, "*_"))
}
