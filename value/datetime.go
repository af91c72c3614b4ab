package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Precision tags how many calendrical components a Date/DateTime/Time
// literal actually specified (spec.md §9: "carry an explicit precision
// tag... so that comparison can return empty when precisions differ").
type Precision int

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
	PrecisionMillisecond
)

// Temporal is the shared representation behind Date, DateTime and Time.
// Unset components are zero; Precision says which ones are meaningful.
type Temporal struct {
	Year, Month, Day             int
	Hour, Minute, Second, Millis int
	Precision                    Precision
	HasTimezone                  bool
	TZOffsetMinutes              int // minutes east of UTC, only if HasTimezone
}

// Date is a FHIRPath date value (`@YYYY`, `@YYYY-MM`, `@YYYY-MM-DD`).
type Date struct{ T Temporal }

func (Date) Kind() Kind { return KindDate }
func (d Date) String() string { return "@" + formatDatePart(d.T) }

// DateTime is a FHIRPath datetime value (`@YYYY...T...`).
type DateTime struct{ T Temporal }

func (DateTime) Kind() Kind { return KindDateTime }
func (d DateTime) String() string {
	s := "@" + formatDatePart(d.T)
	if d.T.Precision >= PrecisionHour {
		s += "T" + formatTimePart(d.T)
	} else {
		s += "T"
	}
	return s
}

// Time is a FHIRPath time-only value (`@THH:MM:SS`).
type Time struct{ T Temporal }

func (Time) Kind() Kind       { return KindTime }
func (t Time) String() string { return "@T" + formatTimePart(t.T) }

func formatDatePart(t Temporal) string {
	s := fmt.Sprintf("%04d", t.Year)
	if t.Precision >= PrecisionMonth {
		s += fmt.Sprintf("-%02d", t.Month)
	}
	if t.Precision >= PrecisionDay {
		s += fmt.Sprintf("-%02d", t.Day)
	}
	return s
}

func formatTimePart(t Temporal) string {
	if t.Precision < PrecisionHour {
		return ""
	}
	s := fmt.Sprintf("%02d", t.Hour)
	if t.Precision >= PrecisionMinute {
		s += fmt.Sprintf(":%02d", t.Minute)
	}
	if t.Precision >= PrecisionSecond {
		s += fmt.Sprintf(":%02d", t.Second)
	}
	if t.Precision >= PrecisionMillisecond {
		s += fmt.Sprintf(".%03d", t.Millis)
	}
	if t.HasTimezone {
		if t.TZOffsetMinutes == 0 {
			s += "Z"
		} else {
			sign := "+"
			off := t.TZOffsetMinutes
			if off < 0 {
				sign = "-"
				off = -off
			}
			s += fmt.Sprintf("%s%02d:%02d", sign, off/60, off%60)
		}
	}
	return s
}

// ParseDate parses the digits following `@` for a Date literal
// (`YYYY(-MM(-DD)?)?`), per spec.md §6.
func ParseDate(lexeme string) (Date, error) {
	t, err := parseDateComponents(lexeme)
	if err != nil {
		return Date{}, err
	}
	return Date{T: t}, nil
}

// ParseDateTime parses a DateTime literal's body (everything after `@`,
// including the `T` and optional time/timezone).
func ParseDateTime(lexeme string) (DateTime, error) {
	datePart, timePart, hasT := strings.Cut(lexeme, "T")
	t, err := parseDateComponents(datePart)
	if err != nil {
		return DateTime{}, err
	}
	if hasT && timePart != "" {
		if err := parseTimeComponents(timePart, &t); err != nil {
			return DateTime{}, err
		}
	}
	return DateTime{T: t}, nil
}

// ParseTime parses a Time literal's body (everything after `@T`).
func ParseTime(lexeme string) (Time, error) {
	var t Temporal
	t.Precision = PrecisionHour
	if err := parseTimeComponents(lexeme, &t); err != nil {
		return Time{}, err
	}
	return Time{T: t}, nil
}

func parseDateComponents(s string) (Temporal, error) {
	var t Temporal
	parts := strings.Split(s, "-")
	if len(parts) == 0 || len(parts[0]) != 4 {
		return Temporal{}, fmt.Errorf("invalid date %q: expected 4-digit year", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Temporal{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	t.Year = year
	t.Precision = PrecisionYear
	if len(parts) >= 2 {
		if len(parts[1]) != 2 {
			return Temporal{}, fmt.Errorf("invalid date %q: month must be 2 digits", s)
		}
		month, err := strconv.Atoi(parts[1])
		if err != nil || month < 1 || month > 12 {
			return Temporal{}, fmt.Errorf("invalid date %q: bad month", s)
		}
		t.Month = month
		t.Precision = PrecisionMonth
	}
	if len(parts) >= 3 {
		if len(parts[2]) != 2 {
			return Temporal{}, fmt.Errorf("invalid date %q: day must be 2 digits", s)
		}
		day, err := strconv.Atoi(parts[2])
		if err != nil || day < 1 || day > 31 {
			return Temporal{}, fmt.Errorf("invalid date %q: bad day", s)
		}
		t.Day = day
		t.Precision = PrecisionDay
	}
	if len(parts) > 3 {
		return Temporal{}, fmt.Errorf("invalid date %q: too many components", s)
	}
	return t, nil
}

func parseTimeComponents(s string, t *Temporal) error {
	// Split off a timezone suffix first: Z, or +HH:MM / -HH:MM.
	body := s
	if strings.HasSuffix(body, "Z") {
		t.HasTimezone = true
		t.TZOffsetMinutes = 0
		body = strings.TrimSuffix(body, "Z")
	} else if idx := tzSignIndex(body); idx >= 0 {
		sign := 1
		if body[idx] == '-' {
			sign = -1
		}
		tz := body[idx+1:]
		body = body[:idx]
		hh, mm, ok := splitHHMM(tz)
		if !ok {
			return fmt.Errorf("invalid timezone offset %q", tz)
		}
		t.HasTimezone = true
		t.TZOffsetMinutes = sign * (hh*60 + mm)
	}
	if body == "" {
		return nil
	}
	fields := strings.Split(body, ":")
	if len(fields) == 0 || len(fields[0]) != 2 {
		return fmt.Errorf("invalid time %q: hour must be 2 digits", s)
	}
	hour, err := strconv.Atoi(fields[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid time %q: bad hour", s)
	}
	t.Hour = hour
	t.Precision = PrecisionHour
	if len(fields) >= 2 {
		if len(fields[1]) != 2 {
			return fmt.Errorf("invalid time %q: minute must be 2 digits", s)
		}
		minute, err := strconv.Atoi(fields[1])
		if err != nil || minute < 0 || minute > 59 {
			return fmt.Errorf("invalid time %q: bad minute", s)
		}
		t.Minute = minute
		t.Precision = PrecisionMinute
	}
	if len(fields) >= 3 {
		secField := fields[2]
		secPart, millisPart, hasMillis := strings.Cut(secField, ".")
		if len(secPart) != 2 {
			return fmt.Errorf("invalid time %q: second must be 2 digits", s)
		}
		second, err := strconv.Atoi(secPart)
		if err != nil || second < 0 || second > 60 {
			return fmt.Errorf("invalid time %q: bad second", s)
		}
		t.Second = second
		t.Precision = PrecisionSecond
		if hasMillis {
			if len(millisPart) != 3 {
				return fmt.Errorf("invalid time %q: milliseconds must be 3 digits", s)
			}
			millis, err := strconv.Atoi(millisPart)
			if err != nil {
				return fmt.Errorf("invalid time %q: bad milliseconds", s)
			}
			t.Millis = millis
			t.Precision = PrecisionMillisecond
		}
	}
	if len(fields) > 3 {
		return fmt.Errorf("invalid time %q: too many components", s)
	}
	return nil
}

func tzSignIndex(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] == '+' || s[i] == '-' {
			return i
		}
	}
	return -1
}

func splitHHMM(s string) (int, int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return hh, mm, true
}

// CompareResult is the outcome of comparing two temporal values:
// precision mismatches that prevent a decision yield Indeterminate,
// which callers translate to the empty collection (spec.md §9).
type CompareResult int

const (
	CompareLess CompareResult = iota - 1
	CompareEqual
	CompareGreater
	CompareIndeterminate
)

// CompareTemporal orders two Temporal values, returning Indeterminate
// when the shared precision is insufficient to decide order (e.g. a
// year-only date against a full date that happens to share the year).
func CompareTemporal(a, b Temporal) CompareResult {
	fields := []struct{ av, bv, prec int }{
		{a.Year, b.Year, int(PrecisionYear)},
		{a.Month, b.Month, int(PrecisionMonth)},
		{a.Day, b.Day, int(PrecisionDay)},
		{a.Hour, b.Hour, int(PrecisionHour)},
		{a.Minute, b.Minute, int(PrecisionMinute)},
		{a.Second, b.Second, int(PrecisionSecond)},
		{a.Millis, b.Millis, int(PrecisionMillisecond)},
	}
	minPrec := int(a.Precision)
	if int(b.Precision) < minPrec {
		minPrec = int(b.Precision)
	}
	for _, f := range fields {
		if f.prec > minPrec {
			break
		}
		if f.av < f.bv {
			return CompareLess
		}
		if f.av > f.bv {
			return CompareGreater
		}
	}
	if a.Precision != b.Precision {
		return CompareIndeterminate
	}
	return CompareEqual
}
