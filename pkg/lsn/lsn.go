package lsn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pglogrepl"
)

// Zero is the LSN sentinel meaning "no position yet" (e.g. a slot that
// should be created fresh, or a stream that has not produced any data).
const Zero = pglogrepl.LSN(0)

// Parse parses the "XXXXXXXX/XXXXXXXX" textual LSN form used throughout the
// Postgres replication protocol (slot catalogs, CREATE_REPLICATION_SLOT's
// consistent_point, START_REPLICATION's start position). Any other form is
// rejected; the caller is expected to map the error onto its own taxonomy
// (e.g. replicationclient.Error{Kind: InvalidPgLsn}).
func Parse(s string) (pglogrepl.LSN, error) {
	hi, lo, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("invalid LSN %q: missing '/'", s)
	}
	upper, err := strconv.ParseUint(hi, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid LSN %q: %w", s, err)
	}
	lower, err := strconv.ParseUint(lo, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid LSN %q: %w", s, err)
	}
	return pglogrepl.LSN(upper<<32 | lower), nil
}

// NonDecreasing reports whether next is not behind prev, the monotonicity
// invariant a slot's confirmed_flush_lsn must hold across observations.
func NonDecreasing(prev, next pglogrepl.LSN) bool {
	return next >= prev
}

// Lag calculates the byte distance between two LSN positions.
func Lag(current, latest pglogrepl.LSN) uint64 {
	if latest <= current {
		return 0
	}
	return uint64(latest - current)
}

// FormatLag returns a human-friendly representation of replication lag.
func FormatLag(bytes uint64, latency time.Duration) string {
	var size string
	switch {
	case bytes >= 1<<30:
		size = fmt.Sprintf("%.2f GB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		size = fmt.Sprintf("%.2f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		size = fmt.Sprintf("%.2f KB", float64(bytes)/float64(1<<10))
	default:
		size = fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%s (latency: %s)", size, latency.Truncate(time.Millisecond))
}
