package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracker(t *testing.T) (*Tracker, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewTracker(client), mr
}

func TestRecordScanIncrements(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := tracker.RecordScan(ctx, "pass-1")
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	// Separate passes keep separate counters.
	count, err := tracker.RecordScan(ctx, "pass-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRecordScanSetsWindowTTL(t *testing.T) {
	tracker, mr := setupTracker(t)

	_, err := tracker.RecordScan(context.Background(), "pass-1")
	require.NoError(t, err)

	ttl := mr.TTL("scan_window:pass-1")
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestRecordScanWindowExpires(t *testing.T) {
	tracker, mr := setupTracker(t)
	ctx := context.Background()

	_, err := tracker.RecordScan(ctx, "pass-1")
	require.NoError(t, err)
	_, err = tracker.RecordScan(ctx, "pass-1")
	require.NoError(t, err)

	mr.FastForward(6 * time.Minute)

	count, err := tracker.RecordScan(ctx, "pass-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "the window resets once the key expires")
}

func TestScanCountReadsWithoutBumping(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	count, err := tracker.ScanCount(ctx, "pass-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = tracker.RecordScan(ctx, "pass-1")
	require.NoError(t, err)

	count, err = tracker.ScanCount(ctx, "pass-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = tracker.ScanCount(ctx, "pass-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetScanWindowFromEnv(t *testing.T) {
	tracker, _ := setupTracker(t)

	t.Setenv("DUPLICATE_WINDOW_MINUTES", "10")
	assert.Equal(t, 10*time.Minute, tracker.getScanWindow())

	t.Setenv("DUPLICATE_WINDOW_MINUTES", "not-a-number")
	assert.Equal(t, 5*time.Minute, tracker.getScanWindow())
}
