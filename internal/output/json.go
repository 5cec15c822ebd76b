package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/chime/internal/model"
)

// JSONFormatter formats decisions as JSON lines, matching the journal format.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes one JSON object per decision.
func (f *JSONFormatter) Format(w io.Writer, decisions []model.Decision) error {
	encoder := json.NewEncoder(w)
	for _, d := range decisions {
		if err := encoder.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

// FormatSingle writes a single decision as indented JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, d model.Decision) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}
