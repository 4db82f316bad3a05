package document

import (
	"bytes"
	"fmt"
)

// WriteBackID returns raw with `key: id` set in the frontmatter block,
// preserving the body byte-for-byte. A file without a block gains one
// containing only the binding. An existing line for key is replaced in
// place; otherwise the binding is appended as the last header line.
//
// This is the identifier write-back performed immediately after a create,
// so a later run finds the document bound and updates instead of
// creating a duplicate.
func WriteBackID(raw []byte, key, id string) ([]byte, error) {
	if key == "" || id == "" {
		return nil, fmt.Errorf("document: write-back needs key and id")
	}
	line := []byte(fmt.Sprintf("%s: %q", key, id))

	trimmed := bytes.TrimLeft(raw, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%s\n%s\n%s\n", delim, line, delim)
		buf.Write(raw)
		return buf.Bytes(), nil
	}

	lead := raw[:len(raw)-len(trimmed)]
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, fmt.Errorf("document: write-back: unterminated frontmatter block")
	}
	block := rest[:idx]
	tail := rest[idx:] // starts with "\n---"

	prefix := append([]byte(key), ':')
	lines := bytes.Split(block, []byte("\n"))
	replaced := false
	for i, l := range lines {
		if bytes.HasPrefix(bytes.TrimLeft(l, " \t"), prefix) {
			lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, line)
	}

	var buf bytes.Buffer
	buf.Write(lead)
	buf.WriteString(delim)
	buf.Write(bytes.Join(lines, []byte("\n")))
	buf.Write(tail)
	return buf.Bytes(), nil
}
