package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Note is a markdown journal entry. Frontmatter is optional; when present it
// may carry related entity names, an in-game date and a real-world timestamp.
type Note struct {
	Frontmatter map[string]any
	Title       string
	Related     []string
	GameDate    string
	Timestamp   time.Time
	CampaignID  string
	Body        string
	SourceFile  string
}

// Content is the thought text: the body, or the title for a body-less note.
func (n *Note) Content() string {
	if n.Body != "" {
		return n.Body
	}
	return n.Title
}

var (
	ErrNoFrontmatter = errors.New("unterminated frontmatter")
	ErrInvalidYAML   = errors.New("invalid YAML in frontmatter")
	ErrEmptyNote     = errors.New("note has no content")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func ParseFile(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	note, err := Parse(data)
	if err != nil {
		return nil, err
	}
	note.SourceFile = path
	return note, nil
}

func Parse(content []byte) (*Note, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	trimmed = bytes.ReplaceAll(trimmed, []byte("\r\n"), []byte("\n"))

	frontmatter := map[string]any{}
	body := trimmed
	if bytes.HasPrefix(trimmed, []byte("---\n")) {
		rest := trimmed[len("---\n"):]
		yamlBytes, after, ok := splitFrontmatter(rest)
		if !ok {
			return nil, ErrNoFrontmatter
		}
		if err := yaml.Unmarshal(yamlBytes, &frontmatter); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		if frontmatter == nil {
			frontmatter = map[string]any{}
		}
		body = after
	}

	note := &Note{
		Frontmatter: frontmatter,
		Title:       strings.TrimSpace(stringValue(frontmatter["title"])),
		Related:     parseList(frontmatter["related"]),
		GameDate:    parseGameDate(frontmatter["game_date"]),
		CampaignID:  strings.TrimSpace(stringValue(frontmatter["campaign"])),
		Body:        strings.TrimSpace(string(body)),
	}

	if raw, ok := frontmatter["timestamp"]; ok && raw != nil {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, err
		}
		note.Timestamp = ts
	}

	if note.Content() == "" {
		return nil, ErrEmptyNote
	}
	return note, nil
}

// splitFrontmatter finds the closing marker. A marker on the last line
// without a trailing newline also counts.
func splitFrontmatter(rest []byte) ([]byte, []byte, bool) {
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, rest[len("---\n"):], true
	}
	if end := bytes.Index(rest, []byte("\n---\n")); end != -1 {
		return rest[:end+1], rest[end+len("\n---\n"):], true
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-len("---")], nil, true
	}
	return nil, nil, false
}

// parseList accepts a single name, a list of names or a comma separated
// string.
func parseList(value any) []string {
	out := []string{}
	switch v := value.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(stringValue(item)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// parseGameDate keeps in-game dates as free text.
func parseGameDate(value any) string {
	if t, ok := value.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(stringValue(value))
}

func parseTimestamp(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp: %q", s)
	case int:
		return time.UnixMilli(int64(v)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("timestamp must be a date or string, got %T", value)
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
