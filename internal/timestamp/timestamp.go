// Package timestamp detects the dominant timestamp format in a sample of
// log lines and extracts instants from lines using that format.
//
// The catalogue is a small, closed set of recognizers. Per the design
// notes, this favors a tagged-variant representation -- an explicit
// matcher+parser pair per format in a fixed slice -- over an interface
// with one implementing type per format.
package timestamp

import (
	"regexp"
	"strconv"
	"time"
)

// Recognizer is one named timestamp format: a regexp that locates a
// candidate substring in a line, and a parser that turns a regexp match
// into an instant.
type Recognizer struct {
	Name   string
	regex  *regexp.Regexp
	parse  func(match []string, now time.Time) (time.Time, bool)
}

var isoRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?`)
var clfRe = regexp.MustCompile(`\[(\d{2})/(\w{3})/(\d{4}):(\d{2}):(\d{2}):(\d{2}) ([+-]\d{4})\]`)
var syslogRe = regexp.MustCompile(`(?:^|\s)(\w{3})\s+(\d{1,2})\s+(\d{2}):(\d{2}):(\d{2})`)
var simpleRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)
var epochMsRe = regexp.MustCompile(`\b1[4-9]\d{11}\b`)
var epochSRe = regexp.MustCompile(`\b1[4-9]\d{8}\b`)
var bracketRe = regexp.MustCompile(`\[(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})(\.\d+)?\]`)

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Catalogue is the ordered list of recognizers, consulted in this order
// during format detection (§5.5) and tie-broken by this order.
var Catalogue = []Recognizer{
	{Name: "iso8601", regex: isoRe, parse: parseISO8601},
	{Name: "clf", regex: clfRe, parse: parseCLF},
	{Name: "syslog", regex: syslogRe, parse: parseSyslog},
	{Name: "simple", regex: simpleRe, parse: parseSimple},
	{Name: "epoch_ms", regex: epochMsRe, parse: parseEpochMs},
	{Name: "epoch_s", regex: epochSRe, parse: parseEpochS},
	{Name: "bracket", regex: bracketRe, parse: parseBracket},
}

// Extract attempts to parse an instant out of line using r, returning ok=
// false on a silent parse failure (the format is right but this particular
// line's match is malformed) without r itself being re-evaluated.
func (r Recognizer) Extract(line string, now time.Time) (time.Time, bool) {
	m := r.regex.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	return r.parse(m, now)
}

func parseISO8601(m []string, _ time.Time) (time.Time, bool) {
	layouts := []string{
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, m[0]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCLF honors the matched numeric UTC offset rather than discarding it
// and falling back to the local zone, since the line carries unambiguous
// offset data and nothing downstream depends on throwing it away.
func parseCLF(m []string, _ time.Time) (time.Time, bool) {
	day, err1 := strconv.Atoi(m[1])
	mon, ok := months[m[2]]
	year, err2 := strconv.Atoi(m[3])
	hour, err3 := strconv.Atoi(m[4])
	min, err4 := strconv.Atoi(m[5])
	sec, err5 := strconv.Atoi(m[6])
	if !ok || err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return time.Time{}, false
	}

	offsetStr := m[7]
	sign := 1
	if offsetStr[0] == '-' {
		sign = -1
	}
	offH, err6 := strconv.Atoi(offsetStr[1:3])
	offM, err7 := strconv.Atoi(offsetStr[3:5])
	if err6 != nil || err7 != nil {
		return time.Time{}, false
	}
	offsetSeconds := sign * (offH*3600 + offM*60)
	loc := time.FixedZone(offsetStr, offsetSeconds)

	return time.Date(year, mon, day, hour, min, sec, 0, loc), true
}

// parseSyslog fills in the missing year from now (resolved once per ingest
// pass, not re-sampled per line) and rolls the year back by one when the
// resulting instant would land more than a day in now's future -- the
// standard fix for syslog's year-less timestamps crossing a Dec 31 -> Jan 1
// boundary while ingesting an old file.
func parseSyslog(m []string, now time.Time) (time.Time, bool) {
	mon, ok := months[m[1]]
	day, err1 := strconv.Atoi(m[2])
	hour, err2 := strconv.Atoi(m[3])
	min, err3 := strconv.Atoi(m[4])
	sec, err4 := strconv.Atoi(m[5])
	if !ok || err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return time.Time{}, false
	}

	t := time.Date(now.Year(), mon, day, hour, min, sec, 0, now.Location())
	if t.After(now.Add(24 * time.Hour)) {
		t = time.Date(now.Year()-1, mon, day, hour, min, sec, 0, now.Location())
	}
	return t, true
}

func parseSimple(m []string, _ time.Time) (time.Time, bool) {
	t, err := time.Parse("2006-01-02 15:04:05", m[0])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseEpochMs(m []string, _ time.Time) (time.Time, bool) {
	ms, err := strconv.ParseInt(m[0], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func parseEpochS(m []string, _ time.Time) (time.Time, bool) {
	s, err := strconv.ParseInt(m[0], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(s, 0).UTC(), true
}

func parseBracket(m []string, _ time.Time) (time.Time, bool) {
	layout := "2006-01-02 15:04:05"
	s := m[1] + "-" + m[2] + "-" + m[3] + " " + m[4] + ":" + m[5] + ":" + m[6]
	if m[7] != "" {
		layout = "2006-01-02 15:04:05.999999999"
		s += m[7]
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MaxSample bounds how many lines format Detect samples.
const MaxSample = 100

// Detect selects the recognizer with the highest confidence
// (valid-parses / sample-size) over sample, requiring confidence > 0.5.
// Ties are broken by catalogue order. now resolves any recognizer (like
// syslog) that needs the wall clock to fill in missing fields; it is
// sampled once for the whole pass, not per line.
func Detect(sample []string, now time.Time) (Recognizer, bool) {
	if len(sample) > MaxSample {
		sample = sample[:MaxSample]
	}
	if len(sample) == 0 {
		return Recognizer{}, false
	}

	bestConfidence := 0.0
	bestIdx := -1

	for i, r := range Catalogue {
		valid := 0
		for _, line := range sample {
			if _, ok := r.Extract(line, now); ok {
				valid++
			}
		}
		confidence := float64(valid) / float64(len(sample))
		if confidence > bestConfidence {
			bestConfidence = confidence
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestConfidence <= 0.5 {
		return Recognizer{}, false
	}
	return Catalogue[bestIdx], true
}
