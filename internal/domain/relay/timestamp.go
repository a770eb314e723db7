package relay

import "time"

// timestampLayout keeps a fixed-width fractional second so the stored
// strings sort lexicographically in chronological order; RFC3339Nano
// trims trailing zeros, which would sort "…00Z" after "…00.5Z".
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders a timestamp for storage: UTC, fixed-width fraction.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
