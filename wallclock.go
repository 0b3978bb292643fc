// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import (
	"fmt"
	"time"
)

// maxValidUnixTime is the largest Unix timestamp this subsystem accepts:
// 2038-01-19T03:14:07Z, the edge of the signed 31-bit Unix range the
// original's wall clock commits to.
const maxValidUnixTime uint32 = 1<<31 - 1

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpEpochOffset uint32 = (70*365 + 17) * 86400

// zigbeeEpochOffset is the number of seconds between the Unix epoch and
// the Zigbee epoch (2000-01-01).
const zigbeeEpochOffset uint32 = (30*365 + 7) * 86400

// Month numbers the way the original's sl_sleeptimer_month_t does:
// January is 0.
type Month uint8

const (
	January Month = iota
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// Weekday numbers Sunday as 0, matching the (days_since_epoch+4) mod 7
// convention (the Unix epoch, 1970-01-01, was a Thursday).
type Weekday uint8

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var daysInMonthTable = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Date is the decomposed Gregorian view of a wall-clock timestamp. Year is
// stored offset from 1900 (2024 is encoded as 124), the way the original's
// struct tm-derived date fields are: constructors accept either form and
// normalize.
type Date struct {
	Year      int // offset from 1900
	Month     Month
	MonthDay  int // 1-31
	Hour      int // 0-23
	Minute    int // 0-59
	Second    int // 0-59
	DayOfWeek Weekday
	DayOfYear int // 0-based, 0 == January 1st
	TimeZone  int32
}

// Format renders the date using a time.Time layout string (Go's stand-in
// for the original's strftime-based sl_sleeptimer_convert_date_to_str).
// The date is treated as a naive wall-clock value with no zone applied,
// the same way the original formats the raw date fields without touching
// TimeZone.
func (d Date) Format(layout string) string {
	t := time.Date(actualYear(d.Year), time.Month(int(d.Month)+1), d.MonthDay,
		d.Hour, d.Minute, d.Second, 0, time.UTC)
	return t.Format(layout)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		actualYear(d.Year), int(d.Month)+1, d.MonthDay, d.Hour, d.Minute, d.Second)
}

// normalizeYear accepts either a 1900-offset year or an absolute Gregorian
// year (>= 1900) and returns the offset form, per spec.md §4.4.
func normalizeYear(year int) int {
	if year >= 1900 {
		return year - 1900
	}
	return year
}

func actualYear(offsetYear int) int {
	return offsetYear + 1900
}

func isLeapYear(actualYr int) bool {
	return actualYr%4 == 0 && (actualYr%100 != 0 || actualYr%400 == 0)
}

func daysInYear(actualYr int) int {
	if isLeapYear(actualYr) {
		return 366
	}
	return 365
}

func daysInMonth(actualYr int, m Month) int {
	if m == February && isLeapYear(actualYr) {
		return 29
	}
	return daysInMonthTable[m]
}

// wallClock is the optional second-counter subsystem of spec.md §4.4. Its
// state is folded into Scheduler and mutated only under the scheduler's
// critical section.
type wallClock struct {
	freq uint32

	secondCount      uint32
	overflowTickRest uint32

	// calculatedSecCount/calculatedTickRest are the whole-seconds and
	// leftover-ticks contribution of a single counter overflow (2^32
	// ticks), precomputed once at init so onOverflow is pure addition.
	calculatedSecCount uint32
	calculatedTickRest uint32

	tzOffset int32
}

func (w *wallClock) init(freq uint64) {
	w.freq = uint32(freq)
	const span = uint64(1) << 32
	w.calculatedSecCount = uint32(span / freq)
	w.calculatedTickRest = uint32(span % freq)
}

// onOverflow folds one counter-overflow's worth of elapsed time into the
// second counter. Called from ProcessIRQ's overflow branch, under the
// critical section.
func (w *wallClock) onOverflow() {
	w.secondCount += w.calculatedSecCount
	w.overflowTickRest += w.calculatedTickRest
	if w.overflowTickRest >= w.freq {
		w.secondCount++
		w.overflowTickRest -= w.freq
	}
}

// getTime computes second_count + floor(c/f), rounding up by one more
// second if the fractional remainder (c mod f, plus the carried-over
// overflow_tick_rest) has already crossed a full second that hasn't yet
// been folded into secondCount by an overflow event.
func (w *wallClock) getTime(counter uint32) uint32 {
	c := uint64(counter)
	f := uint64(w.freq)
	secs := w.secondCount + uint32(c/f)
	if c%f+uint64(w.overflowTickRest) >= f {
		secs++
	}
	return secs
}

// setTime rebases secondCount so that getTime(counter) reads back as
// timestamp, and clears the sub-second residue.
func (w *wallClock) setTime(timestamp, counter uint32) error {
	if timestamp > maxValidUnixTime {
		return ErrInvalidParameter
	}
	w.overflowTickRest = 0
	w.secondCount = timestamp - uint32(uint64(counter)/uint64(w.freq))
	return nil
}

// GetTime returns the current Unix-epoch second count. Returns
// ErrInvalidState if the wall clock was not enabled via WithWallClock.
func (s *Scheduler) GetTime() (uint32, error) {
	if !s.wallClockEnabled {
		return 0, ErrInvalidState
	}
	s.cs.enter()
	t := s.wc.getTime(s.hal.GetCounter())
	s.cs.exit()
	return t, nil
}

// SetTime sets the current Unix-epoch second count.
func (s *Scheduler) SetTime(timestamp uint32) error {
	if !s.wallClockEnabled {
		return ErrInvalidState
	}
	s.cs.enter()
	err := s.wc.setTime(timestamp, s.hal.GetCounter())
	s.cs.exit()
	return err
}

// GetDateTime returns the current time as a Date, in the scheduler's
// configured time zone.
func (s *Scheduler) GetDateTime() (Date, error) {
	t, err := s.GetTime()
	if err != nil {
		return Date{}, err
	}
	return ConvertTimeToDate(t, s.TimeZone())
}

// SetDateTime sets the current time to ConvertDateToTime(date): the date's
// fields composed as Unix seconds with date.TimeZone added.
func (s *Scheduler) SetDateTime(date Date) error {
	t, err := ConvertDateToTime(date)
	if err != nil {
		return err
	}
	return s.SetTime(t)
}

// SetTimeZone sets the offset (seconds, east of UTC positive) that
// GetDateTime passes to ConvertTimeToDate. ConvertDateToTime and
// SetDateTime use the Date's own TimeZone field instead.
func (s *Scheduler) SetTimeZone(offset int32) error {
	if !s.wallClockEnabled {
		return ErrInvalidState
	}
	s.cs.enter()
	s.wc.tzOffset = offset
	s.cs.exit()
	return nil
}

// TimeZone returns the currently configured time zone offset.
func (s *Scheduler) TimeZone() int32 {
	s.cs.enter()
	tz := s.wc.tzOffset
	s.cs.exit()
	return tz
}

// BuildDateTime constructs a Date from calendar fields, filling in
// DayOfWeek and DayOfYear, and validates the result falls in the
// representable range. year may be given either offset-from-1900 or as an
// absolute Gregorian year (>= 1900).
func BuildDateTime(year int, month Month, monthDay, hour, minute, second int, tz int32) (Date, error) {
	d := Date{
		Year: normalizeYear(year), Month: month, MonthDay: monthDay,
		Hour: hour, Minute: minute, Second: second, TimeZone: tz,
	}
	t, err := gregorianToUnixUTC(d)
	if err != nil {
		return Date{}, err
	}
	full, err := unixUTCToGregorian(t)
	if err != nil {
		return Date{}, err
	}
	d.DayOfWeek = full.DayOfWeek
	d.DayOfYear = full.DayOfYear
	return d, nil
}

// ConvertTimeToDate decomposes a Unix timestamp into calendar fields,
// applying timezone first so the resulting fields read as local time; the
// returned Date's TimeZone field records the offset used.
func ConvertTimeToDate(timestamp uint32, timezone int32) (Date, error) {
	if timestamp > maxValidUnixTime {
		return Date{}, ErrInvalidParameter
	}
	local := uint32(int64(timestamp) + int64(timezone))
	d, err := unixUTCToGregorian(local)
	if err != nil {
		return Date{}, err
	}
	d.TimeZone = timezone
	return d, nil
}

// ConvertDateToTime composes calendar fields back into a Unix timestamp,
// then adds the date's TimeZone to it, preserved as-is from the original
// (see DESIGN.md). The result is local, not UTC, seconds. This is the same
// direction ConvertTimeToDate shifts in, so for a nonzero timezone
// ConvertDateToTime(ConvertTimeToDate(t, tz)) yields t+2*tz, not t.
func ConvertDateToTime(date Date) (uint32, error) {
	utc, err := gregorianToUnixUTC(date)
	if err != nil {
		return 0, err
	}
	result := uint32(int64(utc) + int64(date.TimeZone))
	if result > maxValidUnixTime {
		return 0, ErrInvalidParameter
	}
	return result, nil
}

// isValidDate reports whether the calendar fields are individually in
// range (not whether the composed timestamp fits the Unix window — that
// is checked separately once composed, since month-day validity depends on
// the year's leap status).
func isValidDate(d Date) bool {
	yr := actualYear(d.Year)
	if yr < 1970 || yr > 2038 {
		return false
	}
	if d.Month > December {
		return false
	}
	if d.MonthDay < 1 || d.MonthDay > daysInMonth(yr, d.Month) {
		return false
	}
	if d.Hour > 23 || d.Minute > 59 || d.Second > 59 {
		return false
	}
	return true
}

// isValidTime reports whether timestamp, shifted by tz (computed in
// int64 to catch over/underflow before truncation), still lands in the
// representable signed 31-bit Unix range.
func isValidTime(timestamp uint32, tz int32) bool {
	shifted := int64(timestamp) + int64(tz)
	return shifted >= 0 && shifted <= int64(maxValidUnixTime)
}

func gregorianToUnixUTC(d Date) (uint32, error) {
	if !isValidDate(d) {
		return 0, ErrInvalidParameter
	}
	yr := actualYear(d.Year)

	var days int64
	for y := 1970; y < yr; y++ {
		days += int64(daysInYear(y))
	}
	for m := January; m < d.Month; m++ {
		days += int64(daysInMonth(yr, m))
	}
	days += int64(d.MonthDay - 1)

	secs := days*86400 + int64(d.Hour)*3600 + int64(d.Minute)*60 + int64(d.Second)
	if secs < 0 || secs > int64(maxValidUnixTime) {
		return 0, ErrInvalidParameter
	}
	return uint32(secs), nil
}

func unixUTCToGregorian(timestamp uint32) (Date, error) {
	if timestamp > maxValidUnixTime {
		return Date{}, ErrInvalidParameter
	}

	days := int(timestamp / 86400)
	secOfDay := int(timestamp % 86400)

	dayOfWeek := Weekday((days + 4) % 7)

	yr := 1970
	for {
		dy := daysInYear(yr)
		if days < dy {
			break
		}
		days -= dy
		yr++
	}
	dayOfYear := days

	month := January
	for daysInMonth(yr, month) <= days {
		days -= daysInMonth(yr, month)
		month++
	}

	return Date{
		Year:      normalizeYear(yr),
		Month:     month,
		MonthDay:  days + 1,
		Hour:      secOfDay / 3600,
		Minute:    (secOfDay % 3600) / 60,
		Second:    secOfDay % 60,
		DayOfWeek: dayOfWeek,
		DayOfYear: dayOfYear,
	}, nil
}

// ConvertUnixToNTP converts a Unix timestamp to an NTP timestamp (seconds
// since 1900-01-01). Returns ErrInvalidParameter if the result would
// overflow a uint32.
func ConvertUnixToNTP(unix uint32) (uint32, error) {
	r := uint64(unix) + uint64(ntpEpochOffset)
	if r > uint64(^uint32(0)) {
		return 0, ErrInvalidParameter
	}
	return uint32(r), nil
}

// ConvertNTPToUnix converts an NTP timestamp back to Unix time, revalidating
// that the result fits the representable Unix range.
func ConvertNTPToUnix(ntp uint32) (uint32, error) {
	if ntp < ntpEpochOffset {
		return 0, ErrInvalidParameter
	}
	unix := ntp - ntpEpochOffset
	if unix > maxValidUnixTime {
		return 0, ErrInvalidParameter
	}
	return unix, nil
}

// ConvertUnixToZigbee converts a Unix timestamp to a Zigbee timestamp
// (seconds since 2000-01-01).
func ConvertUnixToZigbee(unix uint32) (uint32, error) {
	if unix < zigbeeEpochOffset {
		return 0, ErrInvalidParameter
	}
	return unix - zigbeeEpochOffset, nil
}

// ConvertZigbeeToUnix converts a Zigbee timestamp back to Unix time,
// revalidating that the result fits the representable Unix range.
func ConvertZigbeeToUnix(zigbee uint32) (uint32, error) {
	r := uint64(zigbee) + uint64(zigbeeEpochOffset)
	if r > uint64(maxValidUnixTime) {
		return 0, ErrInvalidParameter
	}
	return uint32(r), nil
}
