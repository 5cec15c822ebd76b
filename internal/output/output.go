// Package output provides output formatters for decisions.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/chime/internal/model"
)

// Formatter formats decisions for output.
type Formatter interface {
	// Format writes formatted decisions to the writer.
	Format(w io.Writer, decisions []model.Decision) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatTable FormatType = "table"
	FormatJSON  FormatType = "json"
	FormatPlain FormatType = "plain"
	FormatIDs   FormatType = "ids"
)

// FormatTypes returns every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatTable, FormatJSON, FormatPlain, FormatIDs}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatTable, "":
		return NewTableFormatter(opts), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatPlain:
		return NewPlainFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string // Custom template for plain format
	ShowTime bool   // Show relative time
}

// DefaultFormatterOptions returns sensible defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowTime: true,
	}
}

// SoundSummary describes the sound channel in one word.
func SoundSummary(d model.Decision) string {
	switch {
	case d.SoundPlayed:
		return "played"
	case d.Reason == model.ReasonProviderRetryableFailure:
		return "failed"
	case d.SoundAttempted:
		return "skipped"
	default:
		return "-"
	}
}

// ReasonSummary renders the sound reason with its cause and, when the visual
// was suppressed, the visual reason.
func ReasonSummary(d model.Decision) string {
	parts := []string{d.Reason.String()}
	if d.Cause != model.CauseNone && d.Cause != model.CausePlayed {
		parts = append(parts, "("+string(d.Cause)+")")
	}
	if !d.ShowVisual {
		parts = append(parts, "visual: "+d.VisualReason.String())
	}
	return strings.Join(parts, " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
