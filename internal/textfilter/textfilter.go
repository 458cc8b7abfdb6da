// Package textfilter is a demonstrative, non-core predicate collaborator
// (§6.4, §10.6): it builds a bleve full-text index over caller-supplied
// document text per point offset and exposes a query as a predicate
// closure usable by Segment.Search. Modeled on a typical bleve-backed
// text index: an in-memory bleve.Index, a match-query search, offsets
// keyed as bleve document IDs. The core segment/graph packages never
// import this package.
package textfilter

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// document is the bleve document shape: the text associated with one
// point offset.
type document struct {
	Content string `json:"content"`
}

// TextFilter indexes free text per point offset and turns a query
// string into an offset predicate.
type TextFilter struct {
	mu    sync.RWMutex
	index bleve.Index
}

// New returns an empty, in-memory TextFilter.
func New() (*TextFilter, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("create text filter index: %w", err)
	}
	return &TextFilter{index: idx}, nil
}

// Index associates text with offset, overwriting any prior text for
// that offset.
func (f *TextFilter) Index(offset uint32, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.index.Index(idFor(offset), document{Content: text}); err != nil {
		return fmt.Errorf("index offset %d: %w", offset, err)
	}
	return nil
}

// Delete removes offset's text from the index, if present.
func (f *TextFilter) Delete(offset uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.index.Delete(idFor(offset)); err != nil {
		return fmt.Errorf("delete offset %d: %w", offset, err)
	}
	return nil
}

// Predicate runs query against the indexed text and returns a closure
// that reports whether offset's text matched, usable as the opaque
// predicate of §6.4. The search runs once, eagerly, when Predicate is
// called; the returned closure only consults the resulting set.
func (f *TextFilter) Predicate(query string) (func(offset uint32) bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = maxMatches

	result, err := f.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("text filter search: %w", err)
	}

	matched := make(map[uint32]struct{}, len(result.Hits))
	for _, hit := range result.Hits {
		offset, err := strconv.ParseUint(hit.ID, 10, 32)
		if err != nil {
			continue
		}
		matched[uint32(offset)] = struct{}{}
	}

	return func(offset uint32) bool {
		_, ok := matched[offset]
		return ok
	}, nil
}

// maxMatches bounds how many documents a single predicate query
// materializes; callers needing more should paginate via repeated
// queries with bleve's own From/Size.
const maxMatches = 10_000

func idFor(offset uint32) string {
	return strconv.FormatUint(uint64(offset), 10)
}
