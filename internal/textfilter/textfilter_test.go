package textfilter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorcore/hnswengine/internal/textfilter"
)

// Given offsets indexed with distinct text, when a predicate is built
// for a query matching only one of them, then the predicate accepts
// that offset and rejects the others.
func TestPredicate_MatchesOnlyIndexedOffset(t *testing.T) {
	f, err := textfilter.New()
	require.NoError(t, err)

	require.NoError(t, f.Index(1, "a document about golang channels"))
	require.NoError(t, f.Index(2, "a document about python generators"))

	pred, err := f.Predicate("golang")
	require.NoError(t, err)

	require.True(t, pred(1))
	require.False(t, pred(2))
}

// Given an offset that was indexed then deleted, when a predicate is
// built for a query that used to match it, then the predicate rejects
// it.
func TestDelete_RemovesOffsetFromFutureMatches(t *testing.T) {
	f, err := textfilter.New()
	require.NoError(t, err)

	require.NoError(t, f.Index(1, "rust ownership and borrowing"))
	require.NoError(t, f.Delete(1))

	pred, err := f.Predicate("rust")
	require.NoError(t, err)
	require.False(t, pred(1))
}
