package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/chime/internal/model"
)

// TableFormatter formats decisions as aligned columns.
type TableFormatter struct {
	opts FormatterOptions
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(opts FormatterOptions) *TableFormatter {
	return &TableFormatter{opts: opts}
}

// Format writes a header row followed by one row per decision.
func (f *TableFormatter) Format(w io.Writer, decisions []model.Decision) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if f.opts.ShowTime {
		fmt.Fprint(tw, "WHEN\t")
	}
	fmt.Fprintln(tw, "KIND\tREF\tVISUAL\tSOUND\tREASON")

	for _, d := range decisions {
		if f.opts.ShowTime {
			fmt.Fprintf(tw, "%s\t", humanize.Time(d.DecidedAt))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.Kind,
			orDash(d.Ref),
			yesNo(d.ShowVisual),
			SoundSummary(d),
			ReasonSummary(d),
		)
	}
	return tw.Flush()
}
