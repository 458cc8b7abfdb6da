package visited

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_VisitMarksAndReportsRepeat(t *testing.T) {
	s := NewSet(10)

	first := s.Visit(3)
	second := s.Visit(3)

	assert.False(t, first)
	assert.True(t, second)
}

func TestSet_IsVisitedWithoutMarking(t *testing.T) {
	s := NewSet(10)

	assert.False(t, s.IsVisited(2))
	s.Visit(2)
	assert.True(t, s.IsVisited(2))
}

func TestSet_ClearStartsNewGeneration(t *testing.T) {
	s := NewSet(10)
	s.Visit(5)

	s.Clear()

	assert.False(t, s.IsVisited(5))
}

func TestSet_GrowsBeyondInitialCapacity(t *testing.T) {
	s := NewSet(2)

	assert.False(t, s.Visit(50))
	assert.True(t, s.IsVisited(50))
}

func TestPool_AcquireReturnsClearedSet(t *testing.T) {
	p := NewPool(1, 16)

	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	s.Visit(1)
	p.Release(s)

	s2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, s2.IsVisited(1))
}

func TestPool_BoundsConcurrentCheckouts(t *testing.T) {
	p := NewPool(1, 16)

	s, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx)
	assert.Error(t, err, "second acquire should block until the first is released")

	p.Release(s)
}
