package export

import (
	"encoding/json"
	"io"

	"github.com/disputalabs/disputa/internal/core"
)

// JSONExporter exports sessions to JSON format.
type JSONExporter struct{}

// ExportData represents the full export structure.
type ExportData struct {
	Session *core.Session       `json:"session"`
	Turns   []*core.SessionTurn `json:"turns"`
}

// Export writes the session as JSON.
func (e *JSONExporter) Export(sess *core.Session, turns []*core.SessionTurn, w io.Writer) error {
	data := ExportData{
		Session: sess,
		Turns:   turns,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return "json"
}
