package xtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrict(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		ts, ok := ParseStrict(DateLayout, "2024-02-29")
		require.True(t, ok)
		assert.Equal(t, 2024, ts.Year())
		assert.Equal(t, time.February, ts.Month())
	})

	t.Run("calendar-invalid date rejected", func(t *testing.T) {
		// time.Parse would normalize this into March 1st.
		_, ok := ParseStrict(DateLayout, "2023-02-30")
		assert.False(t, ok)
	})

	t.Run("day 31 of a 30-day month rejected", func(t *testing.T) {
		_, ok := ParseStrict(DateLayout, "2024-04-31")
		assert.False(t, ok)
	})

	t.Run("malformed input rejected", func(t *testing.T) {
		_, ok := ParseStrict(DateLayout, "29/02/2024")
		assert.False(t, ok)
	})
}

func TestReformat(t *testing.T) {
	t.Run("converts between layouts", func(t *testing.T) {
		out, ok := Reformat("02/01/2006", DateLayout, "29/02/2024")
		require.True(t, ok)
		assert.Equal(t, "2024-02-29", out)
	})

	t.Run("unparsable input passes through", func(t *testing.T) {
		out, ok := Reformat(DateLayout, "02/01/2006", "not-a-date")
		assert.False(t, ok)
		assert.Equal(t, "not-a-date", out)
	})
}

func TestNowIsMockable(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	setUTCNowFunc(func() time.Time { return fixed })

	t.Cleanup(resetUTCNowFunc)

	assert.Equal(t, fixed, Now())
}
