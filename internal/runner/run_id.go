package runner

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const runIDSuffixLen = 12

// NewRunID returns a sortable run id such as 20250102T150405Z-3f2a9c1b7d4e.
func NewRunID() string {
	return NewRunIDAt(time.Now().UTC(), uuid.New())
}

// NewRunIDAt builds a run id from an explicit time and uuid.
func NewRunIDAt(now time.Time, id uuid.UUID) string {
	suffix := strings.ReplaceAll(id.String(), "-", "")[:runIDSuffixLen]
	return FormatRunID(now, suffix)
}

func FormatRunID(now time.Time, suffix string) string {
	return now.UTC().Format("20060102T150405Z") + "-" + suffix
}
