// Package transcript exports a conversation on request. Nothing is saved
// automatically.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diogo/insightchat/internal/models"
)

// Format is the file format of an export
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// DefaultTitle heads exports that were not given a title
const DefaultTitle = "Insight Chat Transcript"

// Transcript is a snapshot of one conversation
type Transcript struct {
	Title      string               `json:"title"`
	Session    string               `json:"session,omitempty"`
	Email      string               `json:"email,omitempty"`
	Endpoint   string               `json:"endpoint,omitempty"`
	Protocol   string               `json:"protocol,omitempty"`
	ExportedAt time.Time            `json:"exported_at"`
	Messages   []models.Message     `json:"messages"`
	Chart      *models.ChartPayload `json:"chart,omitempty"`
}

// FormatForPath picks the format from the file extension
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatMarkdown
}

// Markdown renders the transcript as a markdown document
func Markdown(t Transcript) string {
	var sb strings.Builder

	title := t.Title
	if title == "" {
		title = DefaultTitle
	}
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	if t.Email != "" {
		sb.WriteString("**User:** ")
		sb.WriteString(t.Email)
		sb.WriteString("\n")
	}
	if t.Endpoint != "" {
		sb.WriteString("**Endpoint:** ")
		sb.WriteString(t.Endpoint)
		sb.WriteString("\n")
	}
	if !t.ExportedAt.IsZero() {
		sb.WriteString("**Exported:** ")
		sb.WriteString(t.ExportedAt.Format("2006-01-02 15:04:05"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("**Messages:** %d\n\n---\n\n", len(t.Messages)))

	for i, msg := range t.Messages {
		role := "You"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	if t.Chart != nil {
		data, err := json.MarshalIndent(t.Chart, "", "  ")
		if err == nil {
			sb.WriteString("\n## Chart\n\n```json\n")
			sb.Write(data)
			sb.WriteString("\n```\n")
		}
	}

	return sb.String()
}

// JSON renders the transcript as indented JSON
func JSON(t Transcript) ([]byte, error) {
	if t.Title == "" {
		t.Title = DefaultTitle
	}
	if t.Messages == nil {
		t.Messages = []models.Message{}
	}
	return json.MarshalIndent(t, "", "  ")
}

// DefaultPath names a timestamped export file inside dir
func DefaultPath(dir string, now time.Time, format Format) string {
	ext := ".md"
	if format == FormatJSON {
		ext = ".json"
	}
	return filepath.Join(dir, "transcript-"+now.Format("20060102-150405")+ext)
}

// Write exports t to path, choosing the format from its extension. Missing
// parent directories are created.
func Write(path string, t Transcript) error {
	var data []byte
	switch FormatForPath(path) {
	case FormatJSON:
		encoded, err := JSON(t)
		if err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		data = encoded
	default:
		data = []byte(Markdown(t))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
