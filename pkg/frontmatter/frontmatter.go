// Package frontmatter splits the YAML metadata block off the top of a
// document and writes it back.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var block = regexp.MustCompile(`^(?P<open>-{3,} *\r?\n)(?P<meta>[\s\S]+?)(?P<close>\r?\n-{3,}(?: *\r?\n|$))`)

const sep = "---"

// Document is a document split at the end of its frontmatter.
type Document struct {
	// Meta is the decoded frontmatter. It is empty, never nil, when the
	// document has none.
	Meta map[string]any
	// Body is the content after the frontmatter.
	Body string
	// Raw is the frontmatter as written, delimiters included.
	Raw string
	// Duplicates is set when the frontmatter repeats a key. The last
	// occurrence wins.
	Duplicates bool
}

// Extract splits content into frontmatter and body. {{ }} substitutions in
// the frontmatter are kept as written even where YAML would read them as a
// flow mapping.
func Extract(content string) (Document, error) {
	m := block.FindStringSubmatch(content)
	if m == nil {
		return Document{Meta: map[string]any{}, Body: content}, nil
	}
	raw := m[0]
	doc := Document{Meta: map[string]any{}, Body: content[len(raw):], Raw: raw}

	meta := escape(m[block.SubexpIndex("meta")])
	var data map[string]any
	if err := yaml.Unmarshal([]byte(meta), &data); err != nil {
		if !isDuplicateKey(err) {
			return Document{}, fmt.Errorf("decoding frontmatter: %w", err)
		}
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(meta), &node); err != nil {
			return Document{}, fmt.Errorf("decoding frontmatter: %w", err)
		}
		v, err := lastWins(&node)
		if err != nil {
			return Document{}, fmt.Errorf("decoding frontmatter: %w", err)
		}
		data, _ = v.(map[string]any)
		doc.Duplicates = true
	}

	if data == nil {
		// An empty YAML document is no frontmatter at all.
		doc.Body = content
		doc.Raw = ""
		return doc, nil
	}
	doc.Meta = unescapeAll(data).(map[string]any)
	return doc, nil
}

// Compose writes meta as a frontmatter block in front of body. An empty meta
// produces body unchanged.
func Compose(meta map[string]any, body string) (string, error) {
	if len(meta) == 0 {
		return body, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	dumped := strings.TrimSpace(buf.String())
	if dumped == "{}" {
		return body, nil
	}
	return sep + "\n" + dumped + "\n" + sep + "\n" + body, nil
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "{{", "(({{")
	return strings.ReplaceAll(s, "}}", "}}))")
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "(({{", "{{")
	return strings.ReplaceAll(s, "}}))", "}}")
}

func unescapeAll(v any) any {
	switch t := v.(type) {
	case string:
		return unescape(t)
	case map[string]any:
		for k, item := range t {
			t[k] = unescapeAll(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = unescapeAll(item)
		}
		return t
	}
	return v
}

func isDuplicateKey(err error) bool {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		for _, msg := range te.Errors {
			if strings.Contains(msg, "already defined") {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), "already defined")
}

// lastWins decodes node like yaml.Unmarshal would, except that a repeated
// mapping key replaces the earlier value.
func lastWins(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return lastWins(node.Content[0])
	case yaml.AliasNode:
		return lastWins(node.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := lastWins(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[node.Content[i].Value] = v
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := lastWins(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return v, nil
}
