package store

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999 -0700 MST",
	} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: %q", value)
}

// parseUploadedAt falls back to the current time for unreadable values so a
// single bad row never blocks listing.
func parseUploadedAt(documentID, value string) time.Time {
	ts, err := parseTimeString(value)
	if err != nil {
		slog.Warn("uploaded_at_unparseable",
			slog.String("document_id", documentID),
			slog.String("value", value))
		return time.Now().UTC()
	}
	return ts
}
