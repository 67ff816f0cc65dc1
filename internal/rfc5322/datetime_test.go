package rfc5322

import (
	"testing"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeWithWeekdayAndNumericZone(t *testing.T) {
	c := cursor.New([]byte("Mon, 1 Jan 2024 10:00:00 +0130"))
	dt, err := dateTime(c)
	require.NoError(t, err)
	assert.Equal(t, 2024, dt.Year)
	assert.Equal(t, 1, dt.Day)
	assert.Equal(t, ZoneOffset, dt.Zone.Kind)
	assert.Equal(t, 90, dt.Zone.OffsetMinutes)
}

func TestDateTimeRejectsMismatchedWeekday(t *testing.T) {
	// 1 Jan 2024 is a Monday, not a Tuesday.
	c := cursor.New([]byte("Tue, 1 Jan 2024 10:00:00 +0000"))
	_, err := dateTime(c)
	assert.Error(t, err)
}

func TestDateTimeObsoleteTwoDigitYearBefore50IsTwentyHundreds(t *testing.T) {
	c := cursor.New([]byte("1 Jan 24 10:00:00 +0000"))
	dt, err := dateTime(c)
	require.NoError(t, err)
	assert.Equal(t, 2024, dt.Year)
}

func TestDateTimeObsoleteTwoDigitYearFrom50IsNineteenHundreds(t *testing.T) {
	c := cursor.New([]byte("1 Jan 78 10:00:00 +0000"))
	dt, err := dateTime(c)
	require.NoError(t, err)
	assert.Equal(t, 1978, dt.Year)
}

func TestDateTimeObsoleteThreeDigitYear(t *testing.T) {
	c := cursor.New([]byte("1 Jan 999 10:00:00 +0000"))
	dt, err := dateTime(c)
	require.NoError(t, err)
	assert.Equal(t, 1999, dt.Year)
}

func TestDateTimeMinusZeroZoneIsLocal(t *testing.T) {
	c := cursor.New([]byte("1 Jan 2024 10:00:00 -0000"))
	dt, err := dateTime(c)
	require.NoError(t, err)
	assert.Equal(t, ZoneLocal, dt.Zone.Kind)
}

func TestDateTimeObsoleteNamedZoneIsLocal(t *testing.T) {
	for _, zone := range []string{"UT", "GMT", "EST", "PDT", "Z"} {
		c := cursor.New([]byte("1 Jan 2024 10:00:00 " + zone))
		dt, err := dateTime(c)
		require.NoError(t, err, zone)
		assert.Equal(t, ZoneLocal, dt.Zone.Kind, zone)
	}
}

func TestDateTimeRequiresSomeZone(t *testing.T) {
	c := cursor.New([]byte("1 Jan 2024 10:00:00"))
	_, err := dateTime(c)
	assert.Error(t, err)
}

func TestDateTimeSecondsAreOptional(t *testing.T) {
	c := cursor.New([]byte("1 Jan 2024 10:00 +0000"))
	dt, err := dateTime(c)
	require.NoError(t, err)
	assert.Equal(t, 0, dt.Second)
}
