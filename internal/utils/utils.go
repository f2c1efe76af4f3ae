package utils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"
)

func SortedKeys[T any](m map[string]T) []string {
	var keys []string

	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sleep waits for duration, or until ctx is cancelled. A zero or negative duration
// returns immediately (unless ctx has already been cancelled).
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HostOnly strips the port from an endpoint, if there is one.
func HostOnly(endpoint string) string {
	host, _, err := net.SplitHostPort(endpoint)

	if err != nil {
		return endpoint
	}

	return host
}

func CloseWithLogging[T interface{ Close() error }](label string, closeable T) {
	if err := closeable.Close(); err != nil {
		slog.Warn("closeWithLogging", "type", fmt.Sprintf("%T", closeable), "err", err, "label", label)
	}
}
