package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Weekday is a day index where 0 is Monday and 6 is Sunday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var frenchDays = [7]string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"}

var frenchMonths = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var weekdayAliases = map[string]Weekday{}

func init() {
	english := [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	for i := 0; i < 7; i++ {
		d := Weekday(i)
		for _, name := range []string{frenchDays[i], english[i]} {
			key := foldName(name)
			weekdayAliases[key] = d
			weekdayAliases[key[:3]] = d
		}
	}
}

var lowerFrench = cases.Lower(language.French)

// foldName lowercases and strips diacritics so "Mercredi" and "MERCREDI" compare equal.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return lowerFrench.String(strings.TrimSuffix(folded, "."))
}

// ParseWeekday accepts French or English day names, their three letter
// abbreviations, and ISO numbers 1 (Monday) to 7 (Sunday).
func ParseWeekday(raw string) (Weekday, error) {
	key := foldName(raw)
	if key == "" {
		return 0, fmt.Errorf("empty weekday")
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n < 1 || n > 7 {
			return 0, fmt.Errorf("weekday %d out of range", n)
		}
		return Weekday(n - 1), nil
	}
	if d, ok := weekdayAliases[key]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// WeekdayOf returns the Monday-based index of t.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// Valid reports whether d is within Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ISO returns 1 for Monday through 7 for Sunday.
func (d Weekday) ISO() int {
	return int(d) + 1
}

// String returns the French day name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return frenchDays[d]
}

// MarshalJSON encodes the weekday as its French name.
func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a day name or an ISO day number.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := ParseWeekday(strconv.Itoa(n))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("weekday must be a name or number: %w", err)
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Weekday) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FrenchDateLabel renders dates like "lundi 19 octobre".
func FrenchDateLabel(t time.Time) string {
	return fmt.Sprintf("%s %d %s", WeekdayOf(t), t.Day(), frenchMonths[t.Month()-1])
}

// ParseClock parses a wall clock time in HH:MM form.
func ParseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return t.Hour(), t.Minute(), nil
}

// NormalizeActivity upper-cases and trims an activity key.
func NormalizeActivity(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
