// Package mcpserver bridges a segment to MCP clients over
// github.com/modelcontextprotocol/go-sdk, exposing two tools
// (vector_search and segment_info): an *mcp.Server wrapped in a thin
// Server type, tools registered
// via mcp.AddTool with typed input/output structs, stdio transport
// served through Serve.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vectorcore/hnswengine/internal/logging"
	"github.com/vectorcore/hnswengine/internal/segment"
	"github.com/vectorcore/hnswengine/pkg/version"
)

// Server is the MCP server for the vector search engine. It bridges AI
// clients to a single in-process Segment.
type Server struct {
	mcp            *mcp.Server
	segment        *segment.Segment
	logger         *slog.Logger
	loggingCleanup func()
}

// SearchInput defines the input schema for the vector_search tool.
type SearchInput struct {
	Vector []float32 `json:"vector" jsonschema:"query vector, must match the segment's configured dimension"`
	Top    int       `json:"top,omitempty" jsonschema:"number of results to return, default 10"`
	Ef     int       `json:"ef,omitempty" jsonschema:"search-time candidate list size, default the segment's configured ef"`
}

// SearchResult is one scored hit, translated back to the caller's
// external point ID.
type SearchResult struct {
	ID    uint64  `json:"id" jsonschema:"external point ID"`
	Score float32 `json:"score" jsonschema:"similarity score under the segment's configured metric"`
}

// SearchOutput defines the output schema for the vector_search tool.
type SearchOutput struct {
	Results []SearchResult `json:"results" jsonschema:"top-K scored hits, best first"`
}

// InfoOutput defines the output schema for the segment_info tool.
type InfoOutput struct {
	InstanceID   string `json:"instance_id" jsonschema:"identifier for this segment directory's current generation"`
	Version      uint64 `json:"version" jsonschema:"last committed op_num"`
	VectorCount  int    `json:"vector_count" jsonschema:"live vector count"`
	DeletedCount int    `json:"deleted_count" jsonschema:"tombstoned vector count"`
	PointCount   int    `json:"point_count" jsonschema:"tracked external point count"`
	IsFailed     bool   `json:"is_failed" jsonschema:"whether the segment is latched in a failure state"`
}

// NewServer wraps seg in an MCP server exposing vector_search and
// segment_info tools.
func NewServer(seg *segment.Segment) (*Server, error) {
	if seg == nil {
		return nil, errors.New("segment is required")
	}

	// Service mode: stdout is reserved for the MCP wire protocol, so logs
	// go to file only, at debug level.
	cleanup, err := logging.SetupServiceMode()
	if err != nil {
		return nil, err
	}

	s := &Server{
		segment:        seg,
		logger:         slog.Default(),
		loggingCleanup: cleanup,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "hnswengine",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Close stops this server's file logging. Callers should defer it after
// a successful NewServer.
func (s *Server) Close() {
	if s.loggingCleanup != nil {
		s.loggingCleanup()
		s.loggingCleanup = nil
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vector_search",
		Description: "Finds the nearest stored vectors to a query vector under the segment's configured distance metric.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "segment_info",
		Description: "Reports the segment's current version, vector counts, and failure-latch state.",
	}, s.handleInfo)

	s.logger.Info("MCP tools registered", slog.Int("count", 2))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if len(input.Vector) == 0 {
		return nil, SearchOutput{}, errors.New("vector is required")
	}

	top := input.Top
	if top <= 0 {
		top = 10
	}

	start := time.Now()
	hits, err := s.segment.Search(input.Vector, top, segment.SearchParams{Ef: input.Ef}, nil)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("vector_search failed", slog.Duration("duration", duration), slog.String("error", err.Error()))
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Results: make([]SearchResult, 0, len(hits))}
	for _, h := range hits {
		output.Results = append(output.Results, SearchResult{ID: h.ID, Score: h.Score})
	}

	s.logger.Info("vector_search completed", slog.Duration("duration", duration), slog.Int("result_count", len(hits)))
	return nil, output, nil
}

func (s *Server) handleInfo(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (
	*mcp.CallToolResult, InfoOutput, error,
) {
	info := s.segment.Info()
	return nil, InfoOutput{
		InstanceID:   info.InstanceID,
		Version:      info.Version,
		VectorCount:  info.VectorCount,
		DeletedCount: info.DeletedCount,
		PointCount:   info.PointCount,
		IsFailed:     info.IsFailed,
	}, nil
}

// Serve starts the server on the stdio transport, blocking until ctx is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}
