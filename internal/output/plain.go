package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/chime/internal/model"
)

// PlainFormatter formats decisions as one line each, optionally through a
// text/template.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// templateData is passed to custom templates.
type templateData struct {
	Index int
	model.Decision
	RelativeTime string
	Sound        string
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Parse(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		f.template = tmpl
	}

	return f, nil
}

// Format writes decisions as plain text.
func (f *PlainFormatter) Format(w io.Writer, decisions []model.Decision) error {
	for i, d := range decisions {
		if err := f.formatDecision(w, i+1, d); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatDecision(w io.Writer, index int, d model.Decision) error {
	if f.template != nil {
		data := templateData{
			Index:        index,
			Decision:     d,
			RelativeTime: humanize.Time(d.DecidedAt),
			Sound:        SoundSummary(d),
		}
		if err := f.template.Execute(w, data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s", index, d.Kind)
	if d.Ref != "" {
		fmt.Fprintf(&sb, " %s", d.Ref)
	}
	fmt.Fprintf(&sb, ": visual=%s sound=%s reason=%s", yesNo(d.ShowVisual), SoundSummary(d), d.Reason)
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", humanize.Time(d.DecidedAt))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
