package xtime

import "time"

// Canonical storage layouts. Payload date values are persisted in these
// layouts regardless of the display format configured on the field.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339
)

func UTCNow() time.Time {
	return time.Now().UTC()
}

var utcNowFunc = UTCNow

// Now returns the current UTC time via the overridable clock.
func Now() time.Time {
	return utcNowFunc()
}

// setUTCNowFunc sets the function used to get current UTC time.
// This is primarily used for testing to mock the current time.
func setUTCNowFunc(f func() time.Time) {
	utcNowFunc = f
}

// resetUTCNowFunc resets the UTC now function to the default implementation.
// This should be called in test cleanup to avoid affecting other tests.
func resetUTCNowFunc() {
	utcNowFunc = UTCNow
}

// ParseStrict parses value with layout and verifies the round trip:
// re-formatting the parsed time must reproduce the input exactly.
// This rejects calendar-invalid values such as "2024-02-30", which
// time.Parse would otherwise normalize into March.
func ParseStrict(layout, value string) (time.Time, bool) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, false
	}

	if t.Format(layout) != value {
		return time.Time{}, false
	}

	return t, true
}

// Reformat converts value from one layout to another, strictly.
// Returns the input unchanged when it does not parse under from.
func Reformat(from, to, value string) (string, bool) {
	t, ok := ParseStrict(from, value)
	if !ok {
		return value, false
	}

	return t.Format(to), true
}
