package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/disputalabs/disputa/internal/core"
)

// PDFExporter exports sessions to PDF format.
type PDFExporter struct{}

// Export writes the session as PDF.
func (e *PDFExporter) Export(sess *core.Session, turns []*core.SessionTurn, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	// Add first page
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, e.sanitizeText(sess.Question), "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Session Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	id := sess.ID
	if len(id) > 8 {
		id = id[:8] + "..."
	}
	e.addMetadataRow(pdf, "ID:", id)
	e.addMetadataRow(pdf, "Strategy:", sess.Strategy)
	e.addMetadataRow(pdf, "Status:", string(sess.Status))
	e.addMetadataRow(pdf, "Created:", sess.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	if sess.CompletedAt != nil {
		e.addMetadataRow(pdf, "Completed:", sess.CompletedAt.Format("January 2, 2006 at 3:04 PM"))
		e.addMetadataRow(pdf, "Duration:", formatDuration(sess.CreatedAt, *sess.CompletedAt))
	}
	if sess.Error != "" {
		e.addMetadataRow(pdf, "Error:", e.sanitizeText(sess.Error))
	}
	pdf.Ln(5)

	// One section per protocol
	simulated, dual := splitByMode(turns)
	for _, section := range []struct {
		mode  core.Mode
		turns []*core.SessionTurn
	}{
		{core.ModeSimulated, simulated},
		{core.ModeDual, dual},
	} {
		if pdf.GetY() > 240 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, modeTitle(section.mode))
		pdf.Ln(8)

		if len(section.turns) == 0 {
			pdf.SetFont("Arial", "I", 10)
			pdf.Cell(0, 6, "No turns recorded.")
			pdf.Ln(10)
			continue
		}

		for _, turn := range section.turns {
			// Check if we need a new page
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}

			// Turn header with colored background
			if turn.Agent == core.AgentA {
				pdf.SetFillColor(200, 230, 255) // Light blue
			} else {
				pdf.SetFillColor(200, 255, 200) // Light green
			}

			pdf.SetFont("Arial", "B", 10)
			header := fmt.Sprintf("Turn %d - %s (%s)", turn.Number, turn.Agent, turn.CreatedAt.Format("3:04 PM"))
			pdf.CellFormat(0, 7, header, "", 1, "", true, 0, "")

			// Turn content
			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)
			pdf.MultiCell(0, 5, e.sanitizeText(turn.Content), "", "", false)
			pdf.Ln(5)
		}
	}

	// Footer
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 10, "Exported from disputa", "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

// Helper to add a metadata row
func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, value)
	pdf.Ln(5)
}

// Sanitize text for PDF (remove problematic characters)
func (e *PDFExporter) sanitizeText(text string) string {
	// gofpdf uses Windows-1252 encoding by default
	// Replace common Unicode characters that might cause issues
	replacer := strings.NewReplacer(
		"\u2018", "'", // Left single quote
		"\u2019", "'", // Right single quote
		"\u201C", "\"", // Left double quote
		"\u201D", "\"", // Right double quote
		"\u2013", "-", // En dash
		"\u2014", "--", // Em dash
		"\u2026", "...", // Ellipsis
		"\u2022", "*", // Bullet
		"\u00A0", " ", // Non-breaking space
	)
	return replacer.Replace(text)
}
