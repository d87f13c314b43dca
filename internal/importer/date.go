package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UnknownDate is returned when no date pattern applies.
const UnknownDate = "na-na-na"

// buddhistEraOffset converts a Buddhist Era year to the Gregorian calendar.
const buddhistEraOffset = 543

var thaiMonths = map[string]int{
	"มกราคม":     1,
	"กุมภาพันธ์":  2,
	"มีนาคม":     3,
	"เมษายน":     4,
	"พฤษภาคม":    5,
	"มิถุนายน":    6,
	"กรกฎาคม":    7,
	"สิงหาคม":    8,
	"กันยายน":    9,
	"ตุลาคม":     10,
	"พฤศจิกายน":  11,
	"ธันวาคม":    12,
}

var englishMonths = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"sept": 9,
}

func englishMonth(s string) (int, bool) {
	m, ok := englishMonths[strings.ToLower(s)]
	return m, ok
}

func thaiMonth(s string) (int, bool) {
	m, ok := thaiMonths[s]
	return m, ok
}

func numericMonth(s string) (int, bool) {
	m, err := strconv.Atoi(s)
	return m, err == nil
}

const dateSep = `[\s\-/]`

type datePattern struct {
	re               *regexp.Regexp
	day, month, year int // submatch indexes
	monthOf          func(string) (int, bool)
	yearPrefix       string
	buddhistEra      bool
}

// datePatterns are tried in order; the first that matches anywhere in the input wins.
var datePatterns = []datePattern{
	{ // 2019-05-12
		re:  regexp.MustCompile(`(20\d{2})` + dateSep + `(\d{2})` + dateSep + `(\d{2})`),
		day: 3, month: 2, year: 1, monthOf: numericMonth,
	},
	{ // 12/05/2562
		re:  regexp.MustCompile(`(\d{2})` + dateSep + `([0-1]\d)` + dateSep + `(25\d{2})`),
		day: 1, month: 2, year: 3, monthOf: numericMonth, buddhistEra: true,
	},
	{ // 12/05/2019
		re:  regexp.MustCompile(`(\d{2})` + dateSep + `([0-1]\d)` + dateSep + `(20\d{2})`),
		day: 1, month: 2, year: 3, monthOf: numericMonth,
	},
	{ // 12 พฤษภาคม 62
		re:  regexp.MustCompile(`(\d{1,2})` + dateSep + `([\x{0E00}-\x{0E7F}]+)` + dateSep + `([5-9]\d)\b`),
		day: 1, month: 2, year: 3, monthOf: thaiMonth, yearPrefix: "25", buddhistEra: true,
	},
	{ // 12 May 19
		re:  regexp.MustCompile(`(\d{1,2})` + dateSep + `([A-Za-z]+)` + dateSep + `([0-4]\d)\b`),
		day: 1, month: 2, year: 3, monthOf: englishMonth, yearPrefix: "20",
	},
	{ // 12 May 2019
		re:  regexp.MustCompile(`(\d{1,2})` + dateSep + `([A-Za-z]+)` + dateSep + `((?:19|20)\d{2})\b`),
		day: 1, month: 2, year: 3, monthOf: englishMonth,
	},
	{ // 12 พฤษภาคม 2562
		re:  regexp.MustCompile(`(\d{1,2})` + dateSep + `([\x{0E00}-\x{0E7F}]+)` + dateSep + `(25\d{2})`),
		day: 1, month: 2, year: 3, monthOf: thaiMonth, buddhistEra: true,
	},
	{ // 2562-05-12
		re:  regexp.MustCompile(`(25\d{2})` + dateSep + `(\d{2})` + dateSep + `(\d{2})`),
		day: 3, month: 2, year: 1, monthOf: numericMonth, buddhistEra: true,
	},
}

// NormalizeDate extracts a date from free text and formats it as day-month-year with a
// Gregorian year and no zero padding, e.g. "12-5-2019". Thai month names and Buddhist Era
// years are understood. It returns UnknownDate when nothing matches or the month name is
// not recognized.
func NormalizeDate(s string) string {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		day, _ := strconv.Atoi(m[p.day])
		month, ok := p.monthOf(m[p.month])
		if !ok {
			return UnknownDate
		}
		year, _ := strconv.Atoi(p.yearPrefix + m[p.year])
		if p.buddhistEra {
			year -= buddhistEraOffset
		}
		return fmt.Sprintf("%d-%d-%d", day, month, year)
	}
	return UnknownDate
}
