package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectorcore/hnswengine/internal/segment"
)

func newFlushCmd() *cobra.Command {
	var (
		to       string
		dropData bool
	)

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Load the segment at --dir, optionally drop its data, and flush it back to disk",
		Long: `flush loads the segment at --dir and writes its interior (tracker,
store, index, version) back out, either in place or to --to if given.

With --drop-data, every point is discarded first (§4.8's drop_data): the
segment's version and configuration survive, but it holds zero points
afterward — useful for resetting a segment directory without deleting
it out from under another process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlush(cmd, to, dropData)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "destination directory (defaults to --dir)")
	cmd.Flags().BoolVar(&dropData, "drop-data", false, "discard all points before flushing")

	return cmd
}

func runFlush(cmd *cobra.Command, to string, dropData bool) error {
	out := cmd.OutOrStdout()
	st := stylesFor(os.Stdout)

	seg, err := segment.Load(segmentDir)
	if err != nil {
		return fmt.Errorf("load segment at %s: %w", segmentDir, err)
	}

	if dropData {
		seg.DropData()
		fmt.Fprintln(out, st.Warning.Render("dropped all points"))
	}

	dest := to
	if dest == "" {
		dest = segmentDir
	}

	if err := seg.Flush(dest); err != nil {
		return fmt.Errorf("flush segment to %s: %w", dest, err)
	}

	info := seg.Info()
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf(
		"flushed segment to %s (version %d, %d points)", dest, info.Version, info.PointCount)))
	return nil
}
