package bench

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/armadaproject/ttbench/internal/ttbench/status"
)

// WriteReport writes one line per phase summary as an aligned table.
func WriteReport(out io.Writer, summaries []status.Summary) error {
	w := tabwriter.NewWriter(out, 1, 1, 2, ' ', 0)
	fmt.Fprintln(w, "Phase\tElapsed\tItems\tFailures\tRate (items/s)")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\n", s.Phase, s.Elapsed, s.Items, s.Failures, s.Rate)
	}
	return errors.WithStack(w.Flush())
}
