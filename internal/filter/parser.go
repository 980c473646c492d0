package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// --list-dates accepts "Nov 1-15", "Nov 20 - Dec 5" or a bare month name.
var (
	daysInMonthPattern = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	spanPattern        = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})\s*-\s*([a-z]+)\s+(\d{1,2})$`)
	monthPattern       = regexp.MustCompile(`^([a-z]+)$`)
)

// monthsByName holds full lower-case names, three-letter abbreviations and "sept"
var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 25)
	for month := time.January; month <= time.December; month++ {
		name := strings.ToLower(month.String())
		m[name] = month
		m[name[:3]] = month
	}
	m["sept"] = time.September
	return m
}()

// monthDay is one end of a range before the year is known
type monthDay struct {
	month time.Month
	day   int
}

// ParseDateRange turns a listing date filter into an inclusive UTC range,
// from 00:00:00 on the first day to 23:59:59 on the last. The year is the
// next occurrence of the starting month, counting the current month as
// upcoming; a range whose end month comes before its start month ends in the
// following year.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	return parseDateRange(input, time.Now())
}

func parseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	text := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if text == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	var start, end monthDay
	var err error

	switch {
	case daysInMonthPattern.MatchString(text):
		m := daysInMonthPattern.FindStringSubmatch(text)
		if start, err = parseMonthDay(m[1], m[2]); err != nil {
			return nil, nil, err
		}
		if end, err = parseMonthDay(m[1], m[3]); err != nil {
			return nil, nil, err
		}

	case spanPattern.MatchString(text):
		m := spanPattern.FindStringSubmatch(text)
		if start, err = parseMonthDay(m[1], m[2]); err != nil {
			return nil, nil, err
		}
		if end, err = parseMonthDay(m[3], m[4]); err != nil {
			return nil, nil, err
		}

	case monthPattern.MatchString(text):
		month := parseMonth(text)
		if month == 0 {
			return nil, nil, fmt.Errorf("unknown month %q", text)
		}
		start = monthDay{month: month, day: 1}
		end = monthDay{month: month, day: daysIn(month, upcomingYear(month, now))}

	default:
		return nil, nil, fmt.Errorf("unrecognized date range %q (try 'Nov 1-15', 'Nov 20 - Dec 5' or 'December')", input)
	}

	fromYear := upcomingYear(start.month, now)
	toYear := fromYear
	if end.month < start.month {
		toYear++
	}

	for _, md := range []struct {
		monthDay
		year int
	}{{start, fromYear}, {end, toYear}} {
		if md.day > daysIn(md.month, md.year) {
			return nil, nil, fmt.Errorf("%s has no day %d in %d", md.month, md.day, md.year)
		}
	}

	from := time.Date(fromYear, start.month, start.day, 0, 0, 0, 0, time.UTC)
	to := time.Date(toYear, end.month, end.day, 23, 59, 59, 0, time.UTC)
	if from.After(to) {
		return nil, nil, fmt.Errorf("range %q ends before it starts", input)
	}
	return &from, &to, nil
}

func parseMonthDay(monthText, dayText string) (monthDay, error) {
	month := parseMonth(monthText)
	if month == 0 {
		return monthDay{}, fmt.Errorf("unknown month %q", monthText)
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 || day > 31 {
		return monthDay{}, fmt.Errorf("invalid day %q", dayText)
	}
	return monthDay{month: month, day: day}, nil
}

// parseMonth returns 0 for names it does not know
func parseMonth(name string) time.Month {
	return monthsByName[strings.ToLower(strings.TrimSpace(name))]
}

// upcomingYear is now's year, or the next one when month has already passed
func upcomingYear(month time.Month, now time.Time) int {
	if month < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
