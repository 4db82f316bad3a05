package mapper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/raido/internal/document"
	"github.com/starford/raido/internal/render"
)

// Record is the mapped destination shape handed to the reconciliation
// engine. Built fresh per sync attempt, never cached.
type Record struct {
	ExternalID string
	Payload    map[string]any
	DraftState bool
	SkipSync   bool
}

// ValidationError aggregates every schema violation found in one pass,
// so a single correction to the source document suffices.
type ValidationError struct {
	Locator string
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, "; "))
	}
	return fmt.Sprintf("mapper: %s: %s", e.Locator, strings.Join(parts, "; "))
}

// Mapper applies a destination schema to parsed documents.
type Mapper struct {
	schema *Schema
}

// New creates a Mapper for the given schema.
func New(schema *Schema) *Mapper {
	return &Mapper{schema: schema}
}

// Map builds the destination record from the parsed document and its
// pre-rendered HTML body. Required-field misses are collected and
// reported together in one ValidationError.
func (m *Mapper) Map(doc *document.Document, renderedHTML string) (*Record, error) {
	s := m.schema
	verr := &ValidationError{Locator: doc.Locator}
	payload := make(map[string]any, len(s.Fields)+4)

	for _, f := range s.Fields {
		v, ok := doc.Lookup(f.Source)
		if !ok || v == nil || v == "" {
			if f.Required {
				verr.Missing = append(verr.Missing, f.Name)
			} else if f.Kind == KindBool {
				// Coercion is uniform: an absent boolean is false.
				payload[f.Name] = false
			}
			continue
		}
		switch f.Kind {
		case KindBool:
			payload[f.Name] = document.CoerceBool(v)
		case KindDate:
			iso, err := parseDate(doc.String(f.Source))
			if err != nil {
				verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			payload[f.Name] = iso
		case KindList:
			vals := doc.Strings(f.Source)
			if f.Delimiter != "" {
				payload[f.Name] = strings.Join(vals, f.Delimiter)
			} else {
				payload[f.Name] = vals
			}
		default:
			payload[f.Name] = doc.String(f.Source)
		}
	}

	if title := doc.String(s.TitleSource); title != "" {
		if n := len([]rune(strings.TrimSpace(title))); n < 3 || n > 120 {
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: length %d outside 3-120", s.TitleSource, n))
		}
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return nil, verr
	}

	if s.BodyField != "" {
		payload[s.BodyField] = renderedHTML
	}
	if s.SlugField != "" {
		if slug := doc.String(s.SlugSource); slug != "" {
			payload[s.SlugField] = slug
		} else {
			payload[s.SlugField] = Slugify(doc.String(s.TitleSource))
		}
	}
	if s.ExcerptField != "" {
		if ex := doc.String(s.ExcerptSource); ex != "" {
			payload[s.ExcerptField] = ex
		} else {
			payload[s.ExcerptField] = Excerpt(renderedHTML, s.ExcerptMax)
		}
	}

	return &Record{
		ExternalID: doc.String(s.IDSource),
		Payload:    payload,
		DraftState: !doc.Bool(s.PublishedSource),
		SkipSync:   !doc.Bool(s.SyncSource),
	}, nil
}

var (
	quoteRe    = regexp.MustCompile(`['"` + "`" + `’‘“”]`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify derives a URL slug from a title: lowercase, trim, strip quote
// characters, collapse every run of non-alphanumerics to a single hyphen,
// trim leading/trailing hyphens. Collisions are not resolved here; that
// is the destination store's concern.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = quoteRe.ReplaceAllString(s, "")
	s = nonAlnumRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Excerpt strips markup from rendered HTML, collapses whitespace, and
// hard-truncates to max characters. Truncation may cut mid-word; that is
// accepted behavior, not a bug.
func Excerpt(renderedHTML string, max int) string {
	text := render.PlainText(renderedHTML)
	runes := []rune(text)
	if max > 0 && len(runes) > max {
		return string(runes[:max])
	}
	return text
}

func parseDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("not an ISO-8601 date: %q", v)
}
