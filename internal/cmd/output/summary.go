package output

import (
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/tagsync/pkg/reconciler"
)

// FormatSummary writes s in the given format.
func FormatSummary(w io.Writer, s *reconciler.Summary, format Format) error {
	return NewFormatter(format).Format(w, s)
}

// SummaryData converts a run summary to a key-value table. Property names
// are the summary's JSON keys, title-cased.
func SummaryData(s *reconciler.Summary) Data {
	var rows [][]string
	add := func(key, value string) {
		rows = append(rows, []string{propertyName(key), value})
	}

	add("source", s.Source.String())
	if s.Account != "" {
		add("account", s.Account)
	}
	if s.Region != "" {
		add("region", s.Region)
	}
	add("objectsProcessed", strconv.Itoa(s.ObjectsProcessed))
	add("objectsTagged", strconv.Itoa(s.ObjectsTagged))
	add("labelsAdded", strconv.Itoa(s.LabelsAdded))
	add("errors", strconv.Itoa(len(s.Errors)))
	if s.DryRun {
		add("dryRun", "yes")
	}
	if s.Interrupted {
		add("interrupted", "yes")
	}
	add("startedAt", s.StartedAt.Time.Format(time.RFC3339))
	add("duration", s.Duration().Round(time.Millisecond).String())

	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// ErrorsData lists the errors of a run, one per row.
func ErrorsData(s *reconciler.Summary) Data {
	rows := make([][]string, 0, len(s.Errors))
	for i, msg := range s.Errors {
		rows = append(rows, []string{strconv.Itoa(i + 1), msg})
	}
	return Data{
		Headers:         []string{"#", "Error"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft},
	}
}

// propertyName turns a camelCase key into words, e.g. "objectsTagged"
// becomes "Objects Tagged".
func propertyName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}
