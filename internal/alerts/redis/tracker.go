package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Tracker counts scans per pass inside a rolling window. It backs the
// suspicious-activity signal; the canonical duplicate decision never depends
// on it.
type Tracker struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{
		Client: client,
		Logger: log.Default(),
	}
}

// getScanWindow returns the scan window from environment variables or the
// default value.
func (t *Tracker) getScanWindow() time.Duration {
	defaultWindow := 5 * time.Minute

	windowStr := os.Getenv("DUPLICATE_WINDOW_MINUTES")
	if windowStr == "" {
		return defaultWindow
	}

	windowMin, err := strconv.Atoi(windowStr)
	if err != nil {
		t.Logger.Println("REDIS: Invalid DUPLICATE_WINDOW_MINUTES value '" + windowStr + "', using default 5 minutes")
		return defaultWindow
	}

	return time.Duration(windowMin) * time.Minute
}

// RecordScan bumps the counter for a pass and returns the number of scans
// seen in the current window, this one included. The key expires with the
// window, so an idle pass resets on its own.
func (t *Tracker) RecordScan(ctx context.Context, passID string) (int64, error) {
	key := "scan_window:" + passID

	count, err := t.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := t.Client.Expire(ctx, key, t.getScanWindow()).Err(); err != nil {
			return count, fmt.Errorf("failed to set scan window TTL: %w", err)
		}
	}
	return count, nil
}

// ScanCount reads the current window count without bumping it.
func (t *Tracker) ScanCount(ctx context.Context, passID string) (int64, error) {
	key := "scan_window:" + passID
	val, err := t.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, err
	}
	return count, nil
}
