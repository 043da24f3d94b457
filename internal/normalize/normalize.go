// Package normalize converts free-text fragments of booking information into
// canonical representations: dates as YYYY-MM-DD, times as H:MM AM/PM, and
// phone numbers as bare digits. All functions are pure; an empty return value
// means the fragment did not match, never that parsing failed hard.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	canonicalTimeRE = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*([AP])\.?M\.?$`)
	hourMeridiemRE  = regexp.MustCompile(`(?i)^(\d{1,2})\s*([AP])\.?M\.?$`)
	twentyFourRE    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	bareHourRE      = regexp.MustCompile(`^(\d{1,2})$`)

	isoDateRE      = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dayFirstDateRE = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	bareDayRE      = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\b`)

	nonDigitRE = regexp.MustCompile(`\D`)
)

// months in lookup order; abbreviations follow their full names the way
// humans abbreviate them in speech transcripts.
var months = []struct {
	name string
	num  int
}{
	{"january", 1}, {"jan", 1},
	{"february", 2}, {"feb", 2},
	{"march", 3}, {"mar", 3},
	{"april", 4}, {"apr", 4},
	{"may", 5},
	{"june", 6}, {"jun", 6},
	{"july", 7}, {"jul", 7},
	{"august", 8}, {"aug", 8},
	{"september", 9}, {"sep", 9},
	{"october", 10}, {"oct", 10},
	{"november", 11}, {"nov", 11},
	{"december", 12}, {"dec", 12},
}

// Time converts any recognizable time fragment to canonical "H:MM AM/PM".
// Accepted inputs: already-canonical forms ("11:00 am", "11:00A.M."), bare
// hour with meridiem ("11 AM"), 24-hour clock ("14:30"), and a bare hour
// number whose meridiem is inferred (<12 is AM, otherwise PM). Returns ""
// when nothing matches; callers treat that as "not extracted".
func Time(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if m := canonicalTimeRE.FindStringSubmatch(raw); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute > 59 {
			return ""
		}
		return fmt.Sprintf("%d:%02d %sM", hour, minute, strings.ToUpper(m[3]))
	}

	if m := hourMeridiemRE.FindStringSubmatch(raw); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 1 || hour > 12 {
			return ""
		}
		return fmt.Sprintf("%d:00 %sM", hour, strings.ToUpper(m[2]))
	}

	if m := twentyFourRE.FindStringSubmatch(raw); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return ""
		}
		period := "AM"
		if hour >= 12 {
			period = "PM"
		}
		if hour == 0 {
			hour = 12
		} else if hour > 12 {
			hour -= 12
		}
		return fmt.Sprintf("%d:%02d %s", hour, minute, period)
	}

	if m := bareHourRE.FindStringSubmatch(raw); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return ""
		}
		period := "AM"
		if hour >= 12 {
			period = "PM"
		}
		if hour == 0 {
			hour = 12
		} else if hour > 12 {
			hour -= 12
		}
		return fmt.Sprintf("%d:00 %s", hour, period)
	}

	return ""
}

// Date extracts the first recognizable date in text and returns it in ISO
// form. Rules are tried in fixed priority order; the first match wins:
//
//  1. explicit YYYY-MM-DD
//  2. DD/MM/YYYY or DD-MM-YYYY (day first)
//  3. month-name forms: "March 5, 2026", "5 March 2026", "March 5" (year
//     inferred, rolled forward if already past), "March 2026" (day = 1st)
//  4. relative keywords: tomorrow, today, next week
//  5. a bare day number 1-31, meaning the next occurrence of that day
//
// now anchors the relative rules and year inference. Returns "" when no rule
// matches or the composed date is not a real calendar date.
func Date(text string, now time.Time) string {
	lower := strings.ToLower(text)

	if m := isoDateRE.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return validISO(year, month, day)
	}

	if m := dayFirstDateRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return validISO(year, month, day)
	}

	if iso := monthNameDate(lower, now); iso != "" {
		return iso
	}

	if strings.Contains(lower, "tomorrow") {
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}
	if strings.Contains(lower, "today") {
		return now.Format("2006-01-02")
	}
	if strings.Contains(lower, "next week") {
		return now.AddDate(0, 0, 7).Format("2006-01-02")
	}

	if m := bareDayRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if day >= 1 && day <= 31 {
			if iso := nextDayOfMonth(day, now); iso != "" {
				return iso
			}
		}
	}

	return ""
}

// Phone strips everything that is not a digit.
func Phone(raw string) string {
	return nonDigitRE.ReplaceAllString(raw, "")
}

func monthNameDate(lower string, now time.Time) string {
	for _, mon := range months {
		// "March 5, 2026" / "March 5th 2026"
		re := regexp.MustCompile(mon.name + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)
		if m := re.FindStringSubmatch(lower); m != nil {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[2])
			return validISO(year, mon.num, day)
		}
		// "5 March 2026" / "5th March 2026"
		re = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+` + mon.name + `\s+(\d{4})`)
		if m := re.FindStringSubmatch(lower); m != nil {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[2])
			return validISO(year, mon.num, day)
		}
		// "March 5" / "March 5th" — year inferred, rolled forward if past
		re = regexp.MustCompile(mon.name + `\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s|$|,)`)
		if m := re.FindStringSubmatch(lower); m != nil {
			day, _ := strconv.Atoi(m[1])
			return rollForward(now.Year(), mon.num, day, now)
		}
		// "March 2026" — day defaults to the 1st
		re = regexp.MustCompile(mon.name + `\s+(\d{4})`)
		if m := re.FindStringSubmatch(lower); m != nil {
			year, _ := strconv.Atoi(m[1])
			return validISO(year, mon.num, 1)
		}
	}
	return ""
}

// rollForward composes year-month-day and pushes the date one year ahead when
// it would otherwise land before today.
func rollForward(year, month, day int, now time.Time) string {
	iso := validISO(year, month, day)
	if iso == "" {
		return ""
	}
	target := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if target.Before(today) {
		return validISO(year+1, month, day)
	}
	return iso
}

// nextDayOfMonth interprets a bare day number as the next occurrence of that
// day, rolling into the following month when it already passed.
func nextDayOfMonth(day int, now time.Time) string {
	target := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
	if target.Day() != day {
		// day does not exist in the current month (e.g. 31st in April)
		target = time.Date(now.Year(), now.Month()+1, day, 0, 0, 0, 0, now.Location())
		if target.Day() != day {
			return ""
		}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if target.Before(today) {
		target = time.Date(now.Year(), now.Month()+1, day, 0, 0, 0, 0, now.Location())
		if target.Day() != day {
			return ""
		}
	}
	return target.Format("2006-01-02")
}

// validISO formats a calendar date, rejecting impossible ones like Feb 31.
func validISO(year, month, day int) string {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day || t.Year() != year {
		return ""
	}
	return t.Format("2006-01-02")
}
