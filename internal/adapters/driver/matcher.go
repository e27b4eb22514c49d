package driver

import (
	"fmt"
	"strings"
)

// BookingTarget identifies the opening the agent must pick out of the
// portal's slot list. Date is "YYYY-MM-DD", Time is "HH:MM". RawToken,
// when present, is the portal's own value captured at refresh time.
type BookingTarget struct {
	Date     string
	Time     string
	RawToken string
}

// PortalOption is one entry in the portal's slot selector: the value
// submitted with the form and the human-readable label next to it.
type PortalOption struct {
	Value string
	Label string
}

// SlotMatcher decides whether a portal option represents the target.
// Matchers run in order; the first hit wins.
type SlotMatcher interface {
	Name() string
	Match(target BookingTarget, option PortalOption) bool
}

// DefaultMatchers returns the matcher chain in precedence order: the
// exact token first, then label patterns from most to least specific.
func DefaultMatchers() []SlotMatcher {
	return []SlotMatcher{
		rawTokenMatcher{},
		legacyPatternMatcher{},
		trimmedPatternMatcher{},
		isoPatternMatcher{},
	}
}

// MatchOption runs the chain against one option and reports which
// matcher accepted it, if any.
func MatchOption(matchers []SlotMatcher, target BookingTarget, option PortalOption) (string, bool) {
	for _, m := range matchers {
		if m.Match(target, option) {
			return m.Name(), true
		}
	}
	return "", false
}

// FindOption scans the portal's options for the target.
func FindOption(matchers []SlotMatcher, target BookingTarget, options []PortalOption) (*PortalOption, string, bool) {
	for i := range options {
		if name, ok := MatchOption(matchers, target, options[i]); ok {
			return &options[i], name, true
		}
	}
	return nil, "", false
}

// rawTokenMatcher matches the captured portal value exactly.
type rawTokenMatcher struct{}

func (rawTokenMatcher) Name() string { return "raw_token" }

func (rawTokenMatcher) Match(target BookingTarget, option PortalOption) bool {
	return target.RawToken != "" && target.RawToken == option.Value
}

// legacyPatternMatcher matches the portal's older label format: the
// date as DD-MM-YYYY and the time with an unpadded hour and a bare
// "0" or "30" minute.
type legacyPatternMatcher struct{}

func (legacyPatternMatcher) Name() string { return "legacy_pattern" }

func (legacyPatternMatcher) Match(target BookingTarget, option PortalOption) bool {
	date := legacyDate(target.Date, false)
	forms := legacyTimeForms(target.Time)
	if date == "" || len(forms) == 0 {
		return false
	}
	text := Normalize(option.Label + " " + option.Value)
	return strings.Contains(text, date) && containsAnyTime(text, forms)
}

// trimmedPatternMatcher is the legacy format with zero-trimmed day and
// month.
type trimmedPatternMatcher struct{}

func (trimmedPatternMatcher) Name() string { return "trimmed_pattern" }

func (trimmedPatternMatcher) Match(target BookingTarget, option PortalOption) bool {
	date := legacyDate(target.Date, true)
	forms := legacyTimeForms(target.Time)
	if date == "" || len(forms) == 0 {
		return false
	}
	text := Normalize(option.Label + " " + option.Value)
	return strings.Contains(text, date) && containsAnyTime(text, forms)
}

// isoPatternMatcher matches labels that carry the date as-is.
type isoPatternMatcher struct{}

func (isoPatternMatcher) Name() string { return "iso_pattern" }

func (isoPatternMatcher) Match(target BookingTarget, option PortalOption) bool {
	if target.Date == "" || target.Time == "" {
		return false
	}
	text := Normalize(option.Label + " " + option.Value)
	if !strings.Contains(text, target.Date) {
		return false
	}
	return containsTime(text, target.Time) || containsAnyTime(text, legacyTimeForms(target.Time))
}

// legacyDate converts "YYYY-MM-DD" to "DD-MM-YYYY", optionally trimming
// leading zeros from day and month.
func legacyDate(date string, trimZeros bool) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return ""
	}
	y, m, d := parts[0], parts[1], parts[2]
	if trimZeros {
		m = strings.TrimPrefix(m, "0")
		d = strings.TrimPrefix(d, "0")
	}
	return d + "-" + m + "-" + y
}

// legacyTime converts "HH:MM" to the unpadded form the portal's older
// labels use: hour without a leading zero, minutes "00" shortened to
// "0".
func legacyTime(timeOfDay string) string {
	parts := strings.Split(timeOfDay, ":")
	if len(parts) != 2 {
		return ""
	}
	h := strings.TrimPrefix(parts[0], "0")
	if h == "" {
		h = "0"
	}
	m := parts[1]
	if m == "00" {
		m = "0"
	}
	return h + ":" + m
}

// legacyTimeForms returns the time tokens an older label may carry. A
// full-hour time appears both with the bare "0" minute and with the
// minutes as given, so "10:00" must be looked for as "10:0" and
// "10:00".
func legacyTimeForms(timeOfDay string) []string {
	tm := legacyTime(timeOfDay)
	if tm == "" {
		return nil
	}
	if strings.HasSuffix(timeOfDay, ":00") {
		hour := strings.TrimSuffix(tm, ":0")
		return []string{tm, hour + ":00"}
	}
	return []string{tm}
}

func containsAnyTime(text string, forms []string) bool {
	for _, tm := range forms {
		if containsTime(text, tm) {
			return true
		}
	}
	return false
}

// containsTime looks for the time as a delimited token so "9:3" cannot
// accidentally match inside "9:30".
func containsTime(text, tm string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], tm)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(tm)
		before := byte(' ')
		if start > 0 {
			before = text[start-1]
		}
		after := byte(' ')
		if end < len(text) {
			after = text[end]
		}
		if !isDigit(before) && !isDigit(after) {
			return true
		}
		idx = end
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Normalize maps Arabic-Indic digits to ASCII and the Arabic meridiem
// markers to AM/PM so pattern matching sees one alphabet.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '٠' && r <= '٩': // Arabic-Indic
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹': // Extended Arabic-Indic
			b.WriteRune('0' + (r - '۰'))
		case r == 'ص':
			b.WriteString("AM")
		case r == 'م':
			b.WriteString("PM")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// String implements fmt.Stringer for logging.
func (t BookingTarget) String() string {
	return fmt.Sprintf("%s %s", t.Date, t.Time)
}
