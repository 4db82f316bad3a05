// Package document models a Markdown source file as YAML frontmatter
// plus body, and provides the typed field readers the mapper relies on.
package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the parsed form of one corpus file. It is rebuilt from the
// raw bytes on every sync pass and never persisted.
type Document struct {
	Locator string
	Fields  map[string]any
	Body    string
}

// MalformedHeaderError reports a frontmatter block that is present but
// not valid YAML. A file with no block at all parses fine with empty fields.
type MalformedHeaderError struct {
	Locator string
	Err     error
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("document: malformed frontmatter in %s: %v", e.Locator, e.Err)
}

func (e *MalformedHeaderError) Unwrap() error { return e.Err }

const delim = "---"

// Parse splits raw into frontmatter and body. A missing frontmatter block
// yields a Document with empty Fields; an unparseable block is an error,
// because publishing a file while silently dropping its metadata would
// push wrong content to the store.
func Parse(locator string, raw []byte) (*Document, error) {
	doc := &Document{Locator: locator, Fields: map[string]any{}}

	trimmed := bytes.TrimLeft(raw, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		doc.Body = string(raw)
		return doc, nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// Opening delimiter with no closing one: the whole file is body.
		doc.Body = string(raw)
		return doc, nil
	}

	block := rest[:idx]
	body := rest[idx+len(delim)+1:]
	// Drop the newline terminating the closing delimiter line.
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return nil, &MalformedHeaderError{Locator: locator, Err: err}
	}
	doc.Fields = fields
	doc.Body = string(body)
	return doc, nil
}

// Lookup resolves a possibly dotted key ("seo.title") against the field
// bag. The second return reports whether the key was present.
func (d *Document) Lookup(key string) (any, bool) {
	cur := any(d.Fields)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the field as a string, formatting scalars with %v.
// YAML resolves plain scalars like `date: 2025-01-01` to time.Time, so
// timestamps are rendered as RFC 3339 rather than Go's default layout.
// Missing keys and nil values return "".
func (d *Document) String(key string) string {
	v, ok := d.Lookup(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}

// Bool coerces the field to a boolean. Native booleans and the strings
// "true", "yes" and "1" (case-insensitive) are true; everything else,
// including a missing key, is false.
func (d *Document) Bool(key string) bool {
	v, ok := d.Lookup(key)
	if !ok {
		return false
	}
	return CoerceBool(v)
}

// Has reports whether the (possibly dotted) key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Strings returns the field as a list of strings. A scalar value is
// promoted to a one-element list; a missing key returns nil.
func (d *Document) Strings(key string) []string {
	v, ok := d.Lookup(key)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", e))
			}
		}
		return out
	case []string:
		return t
	case string:
		return []string{t}
	default:
		return []string{fmt.Sprintf("%v", t)}
	}
}

// CoerceBool applies the coercion table used for every boolean-typed
// destination field. Only native booleans and the strings "true", "yes"
// and "1" are true; any other value, numbers included, is false, so a
// stray `featured: 2` never publishes as featured.
func CoerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
