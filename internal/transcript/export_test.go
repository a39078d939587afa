package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/insightchat/internal/models"
)

func sample() Transcript {
	return Transcript{
		Title:      "Sales review",
		Email:      "analyst@example.com",
		Endpoint:   "http://127.0.0.1:8000/",
		ExportedAt: time.Date(2026, 3, 4, 15, 4, 5, 0, time.UTC),
		Messages: []models.Message{
			models.UserMessage("Top regions?"),
			models.AssistantMessage("| Region | Sales |\n|---|---|\n| North | 120 |"),
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample())

	assert.True(t, strings.HasPrefix(md, "# Sales review\n"))
	assert.Contains(t, md, "**User:** analyst@example.com")
	assert.Contains(t, md, "**Exported:** 2026-03-04 15:04:05")
	assert.Contains(t, md, "**Messages:** 2")
	assert.Contains(t, md, "## You\n\nTop regions?")
	assert.Contains(t, md, "## Assistant\n\n| Region | Sales |")
	assert.Equal(t, 2, strings.Count(md, "\n---\n"))
	assert.NotContains(t, md, "## Chart")
}

func TestMarkdown_WithChartAndDefaults(t *testing.T) {
	tr := Transcript{
		Messages: []models.Message{models.AssistantMessage("see chart")},
		Chart:    &models.ChartPayload{ChartType: "pie", Labels: []string{"A"}, Datasets: []models.Dataset{{Data: []float64{1}}}},
	}
	md := Markdown(tr)

	assert.True(t, strings.HasPrefix(md, "# "+DefaultTitle))
	assert.NotContains(t, md, "**User:**")
	assert.Contains(t, md, "## Chart\n\n```json\n")
	assert.Contains(t, md, `"chartType": "pie"`)
}

func TestJSON(t *testing.T) {
	data, err := JSON(sample())
	require.NoError(t, err)

	var decoded Transcript
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Sales review", decoded.Title)
	assert.Len(t, decoded.Messages, 2)
	assert.Nil(t, decoded.Chart)

	empty, err := JSON(Transcript{})
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"messages": []`)
	assert.Contains(t, string(empty), DefaultTitle)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("out.JSON"))
	assert.Equal(t, FormatMarkdown, FormatForPath("out.md"))
	assert.Equal(t, FormatMarkdown, FormatForPath("out"))
}

func TestDefaultPath(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, filepath.Join("d", "transcript-20260102-030405.md"), DefaultPath("d", now, FormatMarkdown))
	assert.Equal(t, filepath.Join("d", "transcript-20260102-030405.json"), DefaultPath("d", now, FormatJSON))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	mdPath := filepath.Join(dir, "nested", "chat.md")
	require.NoError(t, Write(mdPath, sample()))
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Sales review")

	info, err := os.Stat(mdPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	jsonPath := filepath.Join(dir, "chat.json")
	require.NoError(t, Write(jsonPath, sample()))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
