package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/metric"
	"github.com/vectorcore/hnswengine/internal/segment"
	"github.com/vectorcore/hnswengine/internal/vstore"
)

// vectorRecord is one line of the newline-delimited JSON input a build
// reads: an external point ID paired with its raw vector.
type vectorRecord struct {
	ID     uint64    `json:"id"`
	Vector []float32 `json:"vector"`
}

func newBuildCmd() *cobra.Command {
	var (
		distance    string
		indexKind   string
		storageKind string
		m           int
		efConstruct int
	)

	cmd := &cobra.Command{
		Use:   "build <vectors.ndjson>",
		Short: "Build or extend a segment from a newline-delimited JSON vector file",
		Long: `build reads a file of newline-delimited JSON records, each shaped
{"id": <uint64>, "vector": [<float32>, ...]}, and upserts every record
into the segment at --dir, creating it fresh if it does not yet exist.

Each record is applied under an op_num equal to its 1-based position
among the file's records (blank lines are skipped and take no op_num),
so re-running build against an unchanged file is a no-op (§4.8): every
upsert replays the same op_num and is skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], distance, indexKind, storageKind, m, efConstruct)
		},
	}

	cmd.Flags().StringVar(&distance, "distance", string(config.DistanceCosine), "distance metric: Cosine, Euclidean, or Dot")
	cmd.Flags().StringVar(&indexKind, "index", string(config.IndexKindHNSW), "index kind: Hnsw or Plain")
	cmd.Flags().StringVar(&storageKind, "storage", string(config.StorageInMemory), "storage kind: InMemory or Mmap")
	cmd.Flags().IntVar(&m, "m", 16, "HNSW max links per node")
	cmd.Flags().IntVar(&efConstruct, "ef-construct", 100, "HNSW construction candidate list size")

	return cmd
}

func runBuild(cmd *cobra.Command, path, distance, indexKind, storageKind string, m, efConstruct int) error {
	out := cmd.OutOrStdout()
	st := stylesFor(os.Stdout)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, dim, err := readVectorRecords(f)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s contains no vector records", path)
	}

	seg, err := openOrCreateSegment(dim, config.Distance(distance), config.IndexKind(indexKind), config.StorageKind(storageKind), m, efConstruct)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("building segment at %s", segmentDir)))

	buildRecords := make([]segment.BuildRecord, len(records))
	for i, rec := range records {
		buildRecords[i] = segment.BuildRecord{ExternalID: rec.ID, Vector: rec.Vector}
	}

	applied, err := seg.Build(buildRecords, 1)
	if err != nil {
		fmt.Fprintln(out, st.Error.Render(fmt.Sprintf("build: %v", err)))
		return err
	}

	if err := seg.Flush(segmentDir); err != nil {
		return fmt.Errorf("flush segment: %w", err)
	}

	info := seg.Info()
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf(
		"applied %d/%d upserts, segment now holds %d points at version %d",
		applied, len(records), info.PointCount, info.Version)))
	return nil
}

// readVectorRecords parses a newline-delimited JSON vector file and
// confirms every record shares one dimensionality.
func readVectorRecords(f *os.File) ([]vectorRecord, int, error) {
	var records []vectorRecord
	dim := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		var rec vectorRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		if dim == 0 {
			dim = len(rec.Vector)
		} else if len(rec.Vector) != dim {
			return nil, 0, fmt.Errorf("line %d: vector has %d dims, expected %d", line, len(rec.Vector), dim)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", f.Name(), err)
	}
	return records, dim, nil
}

// openOrCreateSegment loads the segment already flushed at segmentDir,
// or creates a fresh one with the given configuration if none exists
// yet.
func openOrCreateSegment(dim int, distance config.Distance, indexKind config.IndexKind, storageKind config.StorageKind, m, efConstruct int) (*segment.Segment, error) {
	if _, err := os.Stat(segmentDir); err == nil {
		seg, err := segment.Load(segmentDir)
		if err == nil {
			return seg, nil
		}
	}

	cfg := config.DefaultSegmentConfig(dim)
	cfg.Distance = distance
	cfg.Index = indexKind
	cfg.Storage = storageKind
	cfg.HNSW.M = m
	cfg.HNSW.EfConstruct = efConstruct
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segment config: %w", err)
	}

	met := metric.New(cfg.Distance)
	var store vstore.Store
	switch cfg.Storage {
	case config.StorageMmap:
		s, err := vstore.NewMmapStore(dim, met)
		if err != nil {
			return nil, fmt.Errorf("create mmap store: %w", err)
		}
		store = s
	default:
		store = vstore.NewInMemoryStore(dim, met)
	}

	return segment.New(cfg, store), nil
}
