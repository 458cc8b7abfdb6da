package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectorcore/hnswengine/internal/segment"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show version, counters, and failure state for the segment at --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd)
		},
	}
}

func runInfo(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	st := stylesFor(os.Stdout)

	seg, err := segment.Load(segmentDir)
	if err != nil {
		return fmt.Errorf("load segment at %s: %w", segmentDir, err)
	}

	info := seg.Info()
	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("segment: %s", segmentDir)))
	fmt.Fprintf(out, "%s %s\n", st.Label.Render("instance:      "), info.InstanceID)
	fmt.Fprintf(out, "%s %d\n", st.Label.Render("version:       "), info.Version)
	fmt.Fprintf(out, "%s %d\n", st.Label.Render("points:        "), info.PointCount)
	fmt.Fprintf(out, "%s %d\n", st.Label.Render("live vectors:  "), info.VectorCount)
	fmt.Fprintf(out, "%s %d\n", st.Label.Render("tombstoned:    "), info.DeletedCount)

	if info.IsFailed {
		msg := fmt.Sprintf("latched failure at op_num %d", info.FailedVersion)
		if info.FailedHasPointID {
			msg += fmt.Sprintf(" (point %d)", info.FailedPointID)
		}
		fmt.Fprintln(out, st.Error.Render(msg))
	} else {
		fmt.Fprintln(out, st.Success.Render("no latched failure"))
	}
	return nil
}
