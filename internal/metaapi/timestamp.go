package metaapi

import "time"

// FormatTimestamp renders t as RFC 3339 UTC with the configured
// subsecond precision (0, 3, 6, or 9 digits), always terminated by "Z",
// per spec.md §7's "Timestamps" rule.
func FormatTimestamp(t time.Time, precisionDigits int) string {
	t = t.UTC()
	switch precisionDigits {
	case 3:
		return t.Format("2006-01-02T15:04:05.000Z")
	case 6:
		return t.Format("2006-01-02T15:04:05.000000Z")
	case 9:
		return t.Format("2006-01-02T15:04:05.000000000Z")
	default:
		return t.Format("2006-01-02T15:04:05Z")
	}
}
