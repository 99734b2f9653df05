// ABOUTME: Tests for the collection change feed and writer notifications.
// ABOUTME: Verifies coalescing, collection filtering and close semantics.
package storage

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch <-chan struct{}) bool {
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(time.Second):
		return false
	}
}

func pending(ch <-chan struct{}) bool {
	select {
	case _, ok := <-ch:
		return ok
	default:
		return false
	}
}

func TestChangefeedFiltersByCollection(t *testing.T) {
	f := NewChangefeed()
	defer f.Close()

	weights, cancelW := f.Subscribe(Weights)
	defer cancelW()
	foods, cancelF := f.Subscribe(Foods, FavoriteFoods)
	defer cancelF()

	f.Publish(Weights)
	assert.True(t, pending(weights))
	assert.False(t, pending(foods))

	f.Publish(FavoriteFoods)
	assert.True(t, pending(foods))
}

func TestChangefeedCoalesces(t *testing.T) {
	f := NewChangefeed()
	defer f.Close()

	ch, cancel := f.Subscribe(Water)
	defer cancel()

	for i := 0; i < 10; i++ {
		f.Publish(Water)
	}
	assert.True(t, pending(ch))
	assert.False(t, pending(ch))
}

func TestChangefeedUnsubscribeAndClose(t *testing.T) {
	f := NewChangefeed()

	ch, cancel := f.Subscribe(Water)
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	other, _ := f.Subscribe(Foods)
	f.Close()
	_, ok = <-other
	assert.False(t, ok)

	late, _ := f.Subscribe(Foods)
	_, ok = <-late
	assert.False(t, ok)
}

func TestWritesPublishAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	ch, cancel := s.Changes().Subscribe(Weights)
	defer cancel()

	require.NoError(t, s.SaveWeight(ctx, &models.WeightEntry{Date: at(1, 7), Weight: 80}))
	require.True(t, received(ch))

	got, err := s.ListWeights(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFailedWriteDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	ch, cancel := s.Changes().Subscribe(Weights)
	defer cancel()

	require.Error(t, s.SaveWeight(ctx, &models.WeightEntry{Date: at(1, 7)}))
	assert.False(t, pending(ch))
}

func TestCloseEndsStoreSubscriptions(t *testing.T) {
	s := setupTestStore(t)
	ch, _ := s.Changes().Subscribe(Foods)
	require.NoError(t, s.Close())

	_, ok := <-ch
	assert.False(t, ok)
}
