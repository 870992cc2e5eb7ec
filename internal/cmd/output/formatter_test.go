package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tagsync/pkg/reconciler"
	"github.com/agentstation/tagsync/pkg/sources"
)

func testSummary() *reconciler.Summary {
	start := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	return &reconciler.Summary{
		Source:           sources.PoliciesID,
		Region:           "us-east-1",
		ObjectsProcessed: 2,
		ObjectsTagged:    1,
		LabelsAdded:      3,
		Errors:           []string{"applying labels [team] to policy arn:aws:iam::1:policy/x: denied"},
		StartedAt:        utc.New(start),
		FinishedAt:       utc.New(start.Add(1500 * time.Millisecond)),
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestFormatSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatSummary(&buf, testSummary(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 2, decoded["objectsProcessed"])
	assert.EqualValues(t, 1, decoded["objectsTagged"])
	assert.Len(t, decoded["errors"], 1)
}

func TestFormatSummaryYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatSummary(&buf, testSummary(), FormatYAML))
	assert.Contains(t, buf.String(), "objectsProcessed: 2")
	assert.Contains(t, buf.String(), "source: policies")
}

func TestFormatSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatSummary(&buf, testSummary(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Objects Processed")
	assert.Contains(t, out, "us-east-1")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "denied")
}

func TestSummaryData(t *testing.T) {
	s := testSummary()
	s.DryRun = true
	data := SummaryData(s)

	props := make(map[string]string, len(data.Rows))
	for _, row := range data.Rows {
		props[row[0]] = row[1]
	}
	assert.Equal(t, "policies", props["Source"])
	assert.Equal(t, "3", props["Labels Added"])
	assert.Equal(t, "yes", props["Dry Run"])
	assert.NotContains(t, props, "Account")
	assert.NotContains(t, props, "Interrupted")
}

func TestPropertyName(t *testing.T) {
	tests := map[string]string{
		"source":           "Source",
		"objectsProcessed": "Objects Processed",
		"labelsAdded":      "Labels Added",
		"dryRun":           "Dry Run",
		"startedAt":        "Started At",
	}
	for key, want := range tests {
		assert.Equal(t, want, propertyName(key), key)
	}
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	type row struct {
		Name  string `json:"name"`
		count int
	}

	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, row{Name: "deploy", count: 2}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, map[string]any{"name": "deploy"}, decoded)
}
