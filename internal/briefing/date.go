package briefing

import (
	"regexp"
	"time"
)

const keyLayout = "2006-01-02"

var keyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Today returns today's date key in local time.
func Today() string {
	return DateKey(time.Now())
}

// DateKey formats t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(keyLayout)
}

// ValidKey reports whether key looks like a YYYY-MM-DD date key.
// The sample key is accepted as well.
func ValidKey(key string) bool {
	return key == SampleKey || keyPattern.MatchString(key)
}

// InRange reports whether start <= key <= end using plain string order.
// This is correct for zero-padded YYYY-MM-DD keys and must stay a string compare.
func InRange(key, start, end string) bool {
	return start <= key && key <= end
}

// FormatLong renders a date key for headings, e.g. "Saturday 6 January 2024".
// Keys that do not parse are returned unchanged.
func FormatLong(key string) string {
	d, err := time.Parse(keyLayout, key)
	if err != nil {
		return key
	}
	return d.Format("Monday 2 January 2006")
}

// StartOfRange returns the key days-1 days before end, for prefilling a range.
// An end key that does not parse is returned unchanged.
func StartOfRange(end string, days int) string {
	d, err := time.Parse(keyLayout, end)
	if err != nil || days < 1 {
		return end
	}
	return DateKey(d.AddDate(0, 0, -(days - 1)))
}
