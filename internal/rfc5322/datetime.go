package rfc5322

import (
	"time"

	"github.com/mailit-dev/smtpsink/internal/cursor"
)

// ZoneKind distinguishes a DateTime with a known UTC offset from one whose
// original source used "-0000" or an obsolete named zone, meaning the
// offset is unknown and the timestamp should be treated as local time.
type ZoneKind int

const (
	ZoneOffset ZoneKind = iota
	ZoneLocal
)

// Zone is the trailing timezone component of a DateTime.
type Zone struct {
	Kind          ZoneKind
	OffsetMinutes int // meaningful only when Kind == ZoneOffset
}

// DateTime is a parsed RFC 5322 date-time, kept in its original field form
// (no timezone database lookups) so it round-trips through ToTime.
type DateTime struct {
	Weekday *time.Weekday
	Day     int
	Month   time.Month
	Year    int
	Hour    int
	Minute  int
	Second  int
	Zone    Zone
}

// ToTime converts a DateTime into a time.Time. A ZoneLocal zone is rendered
// in time.Local, matching the RFC 5322 guidance that "-0000" means the
// origination time has no verifiable offset.
func (d DateTime) ToTime() time.Time {
	loc := time.FixedZone("", d.Zone.OffsetMinutes*60)
	if d.Zone.Kind == ZoneLocal {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, 0, loc)
}

var dayNames = map[string]time.Weekday{
	"Mon": time.Monday, "Tue": time.Tuesday, "Wed": time.Wednesday,
	"Thu": time.Thursday, "Fri": time.Friday, "Sat": time.Saturday, "Sun": time.Sunday,
}

var monthNames = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March, "Apr": time.April,
	"May": time.May, "Jun": time.June, "Jul": time.July, "Aug": time.August,
	"Sep": time.September, "Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// dateTime parses an RFC 5322 date-time field body.
func dateTime(c *cursor.Cursor) (DateTime, error) {
	var weekday *time.Weekday
	if wd, ok := cursor.Maybe(c, dayOfWeek); ok {
		w := wd
		weekday = &w
	}

	day, err := dayOfMonth(c)
	if err != nil {
		return DateTime{}, err
	}
	month, err := monthName(c)
	if err != nil {
		return DateTime{}, err
	}
	year, err := yearField(c)
	if err != nil {
		return DateTime{}, err
	}

	hour, minute, second, err := timeOfDay(c)
	if err != nil {
		return DateTime{}, err
	}
	zone, err := zoneField(c)
	if err != nil {
		return DateTime{}, err
	}

	cursor.Maybe(c, cfws)

	dt := DateTime{Weekday: weekday, Day: day, Month: month, Year: year, Hour: hour, Minute: minute, Second: second, Zone: zone}
	if weekday != nil {
		computed := dt.ToTime().Weekday()
		if computed != *weekday {
			return DateTime{}, cursor.Custom(c.At(), "day-of-week %s does not match computed weekday %s", *weekday, computed)
		}
	}
	return dt, nil
}

func dayOfWeek(c *cursor.Cursor) (time.Weekday, error) {
	cursor.Maybe(c, fws)
	name := c.Advance(3)
	wd, ok := dayNames[string(name)]
	if !ok {
		return 0, cursor.Custom(c.At(), "expected day-of-week name")
	}
	cursor.Maybe(c, fws)
	if _, err := c.Expect([]byte(",")); err != nil {
		return 0, err
	}
	return wd, nil
}

func dayOfMonth(c *cursor.Cursor) (int, error) {
	cursor.Maybe(c, fws)
	day, err := c.ReadNumber(10, 1, 2)
	if err != nil {
		return 0, err
	}
	if _, err := fws(c); err != nil {
		return 0, err
	}
	return int(day), nil
}

func monthName(c *cursor.Cursor) (time.Month, error) {
	name := c.Advance(3)
	m, ok := monthNames[string(name)]
	if !ok {
		return 0, cursor.Custom(c.At(), "expected month name")
	}
	return m, nil
}

func yearField(c *cursor.Cursor) (int, error) {
	if _, err := fws(c); err != nil {
		return 0, err
	}
	year, err := c.ReadNumber(10, 2, 4)
	if err != nil {
		return 0, err
	}
	if _, err := fws(c); err != nil {
		return 0, err
	}
	y := int(year)
	switch {
	case y < 50:
		y += 2000
	case y < 100:
		y += 1900
	case y < 1000:
		y += 1900
	}
	if y < 1900 {
		return 0, cursor.Custom(c.At(), "year %d is before 1900", y)
	}
	return y, nil
}

func timeOfDay(c *cursor.Cursor) (hour, minute, second int, err error) {
	h, err := c.ReadNumber(10, 2, 2)
	if err != nil {
		return 0, 0, 0, err
	}
	if _, err := c.Expect([]byte(":")); err != nil {
		return 0, 0, 0, err
	}
	m, err := c.ReadNumber(10, 2, 2)
	if err != nil {
		return 0, 0, 0, err
	}
	s, _ := cursor.Maybe(c, func(c *cursor.Cursor) (int64, error) {
		if _, err := c.Expect([]byte(":")); err != nil {
			return 0, err
		}
		return c.ReadNumber(10, 2, 2)
	})
	return int(h), int(m), int(s), nil
}

func zoneField(c *cursor.Cursor) (Zone, error) {
	if _, err := fws(c); err != nil {
		return Zone{}, err
	}
	rest := c.Remaining()
	if len(rest) > 0 && (rest[0] == '+' || rest[0] == '-') {
		sign := rest[0]
		c.Advance(1)
		digits, err := c.ReadNumber(10, 4, 4)
		if err != nil {
			return Zone{}, err
		}
		hh := int(digits / 100)
		mm := int(digits % 100)
		offset := hh*60 + mm
		if sign == '-' {
			offset = -offset
		}
		if sign == '-' && digits == 0 {
			return Zone{Kind: ZoneLocal}, nil
		}
		return Zone{Kind: ZoneOffset, OffsetMinutes: offset}, nil
	}
	// obs-zone: named zones (UT, GMT, EST, ... and military zones). None of
	// them carry a verifiable offset in this implementation, so they are
	// all treated as ZoneLocal, same as "-0000".
	name := c.TakeWhile(func(b byte) bool { return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') })
	if len(name) == 0 {
		return Zone{}, cursor.Custom(c.At(), "expected zone")
	}
	return Zone{Kind: ZoneLocal}, nil
}
