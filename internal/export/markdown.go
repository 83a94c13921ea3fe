package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/disputalabs/disputa/internal/core"
)

// MarkdownExporter exports sessions to Markdown format.
type MarkdownExporter struct{}

// Export writes the session as Markdown.
func (e *MarkdownExporter) Export(sess *core.Session, turns []*core.SessionTurn, w io.Writer) error {
	var sb strings.Builder

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", sess.Question))

	// Metadata
	sb.WriteString("## Session Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", sess.ID))
	sb.WriteString(fmt.Sprintf("- **Strategy:** %s\n", sess.Strategy))
	sb.WriteString(fmt.Sprintf("- **Status:** %s\n", sess.Status))
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", sess.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	if sess.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("- **Completed:** %s\n", sess.CompletedAt.Format("January 2, 2006 at 3:04 PM")))
		sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", formatDuration(sess.CreatedAt, *sess.CompletedAt)))
	}
	if sess.Error != "" {
		sb.WriteString(fmt.Sprintf("- **Error:** %s\n", sess.Error))
	}
	sb.WriteString("\n")

	// One section per protocol
	simulated, dual := splitByMode(turns)
	for _, section := range []struct {
		mode  core.Mode
		turns []*core.SessionTurn
	}{
		{core.ModeSimulated, simulated},
		{core.ModeDual, dual},
	} {
		sb.WriteString(fmt.Sprintf("## %s\n\n", modeTitle(section.mode)))

		if len(section.turns) == 0 {
			sb.WriteString("*No turns recorded.*\n\n")
			continue
		}

		for _, turn := range section.turns {
			sb.WriteString(fmt.Sprintf("### Turn %d - %s\n\n", turn.Number, turn.Agent))
			sb.WriteString(fmt.Sprintf("*%s*\n\n", turn.CreatedAt.Format("3:04 PM")))
			sb.WriteString(turn.Content)
			sb.WriteString("\n\n---\n\n")
		}
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from disputa*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}
