// Package export handles exporting dialogue sessions to various formats.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/disputalabs/disputa/internal/core"
)

// Format represents an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

// Exporter defines the interface for exporting sessions.
type Exporter interface {
	Export(sess *core.Session, turns []*core.SessionTurn, w io.Writer) error
	FileExtension() string
}

// GetExporter returns an exporter for the given format.
func GetExporter(format Format) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	case FormatPDF:
		return &PDFExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// GenerateFilename creates a filename for the export.
func GenerateFilename(sess *core.Session, ext string) string {
	// Sanitize question for filename
	question := sess.Question
	if len(question) > 50 {
		question = question[:50]
	}

	// Replace unsafe characters
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	question = replacer.Replace(question)

	timestamp := sess.CreatedAt.Format("20060102")
	return fmt.Sprintf("dialogue_%s_%s.%s", timestamp, question, ext)
}

// splitByMode partitions turns into the two protocol transcripts, preserving
// order.
func splitByMode(turns []*core.SessionTurn) (simulated, dual []*core.SessionTurn) {
	for _, t := range turns {
		if t.Mode == core.ModeDual {
			dual = append(dual, t)
		} else {
			simulated = append(simulated, t)
		}
	}
	return simulated, dual
}

// modeTitle returns the section heading for a protocol.
func modeTitle(mode core.Mode) string {
	if mode == core.ModeDual {
		return "Dual-Agent Dialogue"
	}
	return "Simulated Dialogue"
}

// Helper to format duration
func formatDuration(start, end time.Time) string {
	d := end.Sub(start)
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}
