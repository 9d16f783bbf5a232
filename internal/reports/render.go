package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
)

// Render serializes r in the requested format.
func Render(r *Report, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return renderCSV(r)
	case FormatJSON:
		return renderJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// renderCSV writes the summary as name,value rows followed by each section
// as a header row, its columns and its rows, separated by blank lines.
func renderCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{{r.Title}, {"generated_at", r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")}}
	for _, field := range r.Summary {
		records = append(records, []string{field.Name, field.Value})
	}
	for _, section := range r.Sections {
		records = append(records, []string{}, []string{section.Name}, section.Columns)
		records = append(records, section.Rows...)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

type jsonSection struct {
	Name string              `json:"name"`
	Rows []map[string]string `json:"rows"`
}

type jsonReport struct {
	Type        string            `json:"type"`
	TargetID    int64             `json:"targetId"`
	Title       string            `json:"title"`
	GeneratedAt string            `json:"generatedAt"`
	Summary     map[string]string `json:"summary"`
	Sections    []jsonSection     `json:"sections"`
}

// renderJSON turns every section row into an object keyed by column name.
func renderJSON(r *Report) ([]byte, error) {
	out := jsonReport{
		Type:        r.Type,
		TargetID:    r.TargetID,
		Title:       r.Title,
		GeneratedAt: r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Summary:     make(map[string]string, len(r.Summary)),
		Sections:    make([]jsonSection, 0, len(r.Sections)),
	}
	for _, field := range r.Summary {
		out.Summary[field.Name] = field.Value
	}
	for _, section := range r.Sections {
		js := jsonSection{Name: section.Name, Rows: make([]map[string]string, 0, len(section.Rows))}
		for _, row := range section.Rows {
			obj := make(map[string]string, len(section.Columns))
			for i, column := range section.Columns {
				if i < len(row) {
					obj[column] = row[i]
				}
			}
			js.Rows = append(js.Rows, obj)
		}
		out.Sections = append(out.Sections, js)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}
