// ABOUTME: Tests for the snapshot sync client against an httptest server.
// ABOUTME: Covers the no-token no-op, single in-flight sync, status errors and cancellation.

package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	batch *models.SyncBatch
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Snapshot(ctx context.Context) (*models.SyncBatch, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

func sampleBatch() *models.SyncBatch {
	return &models.SyncBatch{
		Weights: []models.WeightEntry{{ID: 1, Date: 1700000000000, Weight: 80}},
		Water:   []models.WaterEntry{{ID: 1, Date: 1700000000000, Amount: 250}, {ID: 2, Date: 1700000100000, Amount: 300}},
	}
}

func TestSyncWithoutTokenIsSilentNoOp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()

	src := &fakeSource{batch: sampleBatch()}
	c := NewClient(srv.URL, src)

	res, err := c.Sync(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusNoToken, res.Status)
	assert.Zero(t, hits.Load())
	assert.Zero(t, src.calls.Load())
}

func TestSyncPostsSnapshot(t *testing.T) {
	var got models.SyncBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "dev-1", r.Header.Get("X-Device-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"synced":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", &fakeSource{batch: sampleBatch()}, WithDeviceID("dev-1"))
	res, err := c.Sync(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, res.Status)
	assert.Equal(t, 2, res.Counts[models.CategoryWater])
	assert.Len(t, got.Water, 2)
	assert.Equal(t, 80.0, got.Weights[0].Weight)
	assert.False(t, c.InFlight())
}

func TestSyncReturnsStatusErrorWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Missing or invalid token"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &fakeSource{batch: sampleBatch()})
	_, err := c.Sync(context.Background(), "expired")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "Missing or invalid token", se.Message)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestOverlappingSyncIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		entered <- struct{}{}
		<-release
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &fakeSource{batch: sampleBatch()})
	first := c.Start(context.Background(), "tok")
	<-entered
	assert.True(t, c.InFlight())

	res, err := c.Sync(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, StatusBusy, res.Status)

	close(release)
	out := <-first
	require.NoError(t, out.Err)
	assert.Equal(t, StatusSynced, out.Result.Status)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSyncHonorsCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, &fakeSource{batch: sampleBatch()})
	ctx, cancel := context.WithCancel(context.Background())
	out := c.Start(ctx, "tok")
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case o := <-out:
		require.Error(t, o.Err)
		assert.ErrorIs(t, o.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not observe cancellation")
	}
	assert.False(t, c.InFlight())
}

func TestSyncTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, &fakeSource{batch: sampleBatch()}, WithTimeout(50*time.Millisecond))
	_, err := c.Sync(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSnapshotFailureSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()

	c := NewClient(srv.URL, &fakeSource{err: errors.New("disk on fire")})
	_, err := c.Sync(context.Background(), "tok")
	assert.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := &Config{Server: "https://ledger.example.com/", Token: "t", DeviceID: "d", TimeoutSeconds: 7}
	c := NewClientFromConfig(cfg, &fakeSource{})
	assert.Equal(t, "https://ledger.example.com", c.server)
	assert.Equal(t, "d", c.deviceID)
	assert.Equal(t, 7*time.Second, c.timeout)
}
