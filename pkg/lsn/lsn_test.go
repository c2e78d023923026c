package lsn

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pglogrepl"
)

func TestLag(t *testing.T) {
	tests := []struct {
		name    string
		current pglogrepl.LSN
		latest  pglogrepl.LSN
		want    uint64
	}{
		{"zero lag", pglogrepl.LSN(100), pglogrepl.LSN(100), 0},
		{"positive lag", pglogrepl.LSN(100), pglogrepl.LSN(200), 100},
		{"current ahead", pglogrepl.LSN(200), pglogrepl.LSN(100), 0},
		{"both zero", pglogrepl.LSN(0), pglogrepl.LSN(0), 0},
		{"large lag", pglogrepl.LSN(0), pglogrepl.LSN(1 << 30), 1 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lag(tt.current, tt.latest)
			if got != tt.want {
				t.Errorf("Lag(%d, %d) = %d, want %d", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestFormatLag(t *testing.T) {
	tests := []struct {
		name    string
		bytes   uint64
		latency time.Duration
		want    string
	}{
		{"zero", 0, 0, "0 B (latency: 0s)"},
		{"bytes", 512, 5 * time.Millisecond, "512 B (latency: 5ms)"},
		{"kilobytes", 1024, 10 * time.Millisecond, "1.00 KB (latency: 10ms)"},
		{"megabytes", 1 << 20, 150 * time.Millisecond, "1.00 MB (latency: 150ms)"},
		{"gigabytes", 1 << 30, 30 * time.Second, "1.00 GB (latency: 30s)"},
		{"fractional MB", 1572864, 0, "1.50 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLag(tt.bytes, tt.latency)
			if !strings.Contains(got, tt.want) && got != tt.want {
				t.Errorf("FormatLag(%d, %v) = %q, want to contain %q", tt.bytes, tt.latency, got, tt.want)
			}
		})
	}
}

func TestFormatLag_LatencyTruncation(t *testing.T) {
	got := FormatLag(0, 1234567*time.Nanosecond)
	if !strings.Contains(got, "latency: 1ms") {
		t.Errorf("FormatLag should truncate to milliseconds, got %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    pglogrepl.LSN
		wantErr bool
	}{
		{"zero", "0/0", pglogrepl.LSN(0), false},
		{"simple", "16/B374D848", pglogrepl.LSN(0x16B374D848), false},
		{"padded halves", "00000001/00000000", pglogrepl.LSN(1 << 32), false},
		{"missing slash", "16B374D848", 0, true},
		{"too many parts", "1/2/3", 0, true},
		{"non hex", "ZZ/11", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestNonDecreasing(t *testing.T) {
	tests := []struct {
		name string
		prev pglogrepl.LSN
		next pglogrepl.LSN
		want bool
	}{
		{"equal", 100, 100, true},
		{"advanced", 100, 200, true},
		{"regressed", 200, 100, false},
		{"both zero", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NonDecreasing(tt.prev, tt.next); got != tt.want {
				t.Errorf("NonDecreasing(%d, %d) = %v, want %v", tt.prev, tt.next, got, tt.want)
			}
		})
	}
}
