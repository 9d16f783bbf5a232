// Package reports builds game, player, team and competition reports and
// renders them as CSV or JSON.
package reports

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	TypeGame        = "game"
	TypePlayer      = "player"
	TypeTeam        = "team"
	TypeCompetition = "competition"

	FormatCSV  = "csv"
	FormatJSON = "json"
)

var (
	Types   = []string{TypeGame, TypePlayer, TypeTeam, TypeCompetition}
	Formats = []string{FormatCSV, FormatJSON}

	ErrUnknownType   = errors.New("unknown report type")
	ErrUnknownFormat = errors.New("unknown report format")
)

// Options mirror a user's export settings.
type Options struct {
	Anonymize            bool
	IncludeShots         bool
	IncludeEvents        bool
	IncludeSubstitutions bool
}

func DefaultOptions() Options {
	return Options{IncludeShots: true, IncludeEvents: true, IncludeSubstitutions: true}
}

// Report is a titled set of key/value facts plus tabular sections.
type Report struct {
	Type        string    `json:"type"`
	TargetID    int64     `json:"targetId"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generatedAt"`
	Summary     []Field   `json:"summary"`
	Sections    []Section `json:"sections"`
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Section struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (r *Report) addSummary(name string, value any) {
	r.Summary = append(r.Summary, Field{Name: name, Value: fmt.Sprint(value)})
}

func ValidType(reportType string) bool {
	for _, t := range Types {
		if t == reportType {
			return true
		}
	}
	return false
}

func ValidFormat(format string) bool {
	return format == FormatCSV || format == FormatJSON
}

// FileName names a rendered report, e.g. game-12-20260314.csv.
func FileName(reportType string, targetID int64, format string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s.%s", reportType, targetID, at.UTC().Format("20060102"), format)
}

func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// PlayerLabel returns the display name for a player, or "Player #<jersey>"
// when anonymizing.
func PlayerLabel(firstName, lastName string, jersey int64, anonymize bool) string {
	if anonymize {
		return "Player #" + strconv.FormatInt(jersey, 10)
	}
	return firstName + " " + lastName
}

func accuracy(goals, shots int64) string {
	if shots == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(goals)*100/float64(shots), 'f', 1, 64)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func clockLabel(remainingSeconds int64) string {
	return fmt.Sprintf("%02d:%02d", remainingSeconds/60, remainingSeconds%60)
}
