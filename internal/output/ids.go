package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/chime/internal/model"
)

// IDsFormatter outputs just the event IDs, one per line.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes event IDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, decisions []model.Decision) error {
	for _, d := range decisions {
		if _, err := fmt.Fprintln(w, d.EventID); err != nil {
			return err
		}
	}
	return nil
}
