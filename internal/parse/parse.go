// ABOUTME: Parsing of importable prayer request sources into request drafts
// ABOUTME: Reads RSS/Atom feeds via gofeed and YAML request lists via yaml.v3

package parse

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/harper/amenity/internal/content"
	"github.com/harper/amenity/internal/models"
)

// Draft is a request read from an import source, not yet stored.
type Draft struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	Urgency     string     `yaml:"urgency"`
	Status      string     `yaml:"status"`
	Author      string     `yaml:"author"`
	CreatedAt   *time.Time `yaml:"created_at"`
}

// Validate checks required fields and enum values.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if _, err := models.ParseUrgency(d.Urgency); err != nil {
		return err
	}
	if d.Status != "" {
		if _, err := models.ParseStatus(d.Status); err != nil {
			return err
		}
	}
	return nil
}

// ToRequest builds a new Request from the draft. Call Validate first.
func (d Draft) ToRequest() *models.Request {
	req := models.NewRequest(strings.TrimSpace(d.Title), strings.TrimSpace(d.Description))
	if d.Category != "" {
		req.Category = strings.ToLower(strings.TrimSpace(d.Category))
	}
	if u, err := models.ParseUrgency(d.Urgency); err == nil {
		req.Urgency = u
	}
	if d.Status != "" {
		if s, err := models.ParseStatus(d.Status); err == nil {
			req.Status = s
		}
	}
	if d.Author != "" {
		author := d.Author
		req.AuthorID = &author
	}
	if d.CreatedAt != nil && !d.CreatedAt.IsZero() {
		req.CreatedAt = *d.CreatedAt
	}
	return req
}

// ParseFeed turns RSS or Atom items into drafts. HTML bodies become Markdown.
func ParseFeed(data []byte) ([]Draft, error) {
	parser := gofeed.NewParser()
	feed, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	drafts := make([]Draft, 0, len(feed.Items))
	for _, item := range feed.Items {
		d := Draft{Title: strings.TrimSpace(item.Title)}

		// Prefer Content over Description
		body := item.Content
		if body == "" {
			body = item.Description
		}
		d.Description = content.ToMarkdown(strings.TrimSpace(body))

		if len(item.Categories) > 0 {
			d.Category = item.Categories[0]
		}
		if item.Author != nil {
			d.Author = item.Author.Name
		}

		// Use PublishedParsed or fallback to UpdatedParsed
		if item.PublishedParsed != nil {
			d.CreatedAt = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			d.CreatedAt = item.UpdatedParsed
		}

		if d.Title == "" {
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// ParseYAML reads a YAML list of drafts and validates each one.
func ParseYAML(data []byte) ([]Draft, error) {
	var drafts []Draft
	if err := yaml.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	return drafts, nil
}

// Parse picks YAML or feed parsing from the content type, file name, or content.
func Parse(data []byte, hint string) ([]Draft, error) {
	if IsYAML(data, hint) {
		return ParseYAML(data)
	}
	return ParseFeed(data)
}

// IsYAML reports whether data looks like a YAML request list.
func IsYAML(data []byte, hint string) bool {
	h := strings.ToLower(hint)
	if strings.HasSuffix(h, ".yaml") || strings.HasSuffix(h, ".yml") || strings.Contains(h, "yaml") {
		return true
	}
	if strings.Contains(h, "xml") || strings.Contains(h, "rss") || strings.Contains(h, "atom") {
		return false
	}
	trimmed := bytes.TrimSpace(data)
	return !bytes.HasPrefix(trimmed, []byte("<"))
}
