package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is returned when a transcript document is malformed.
var ErrFormat = errors.New("malformed transcript document")

// Document is the transcript.json payload served for a talk.
type Document struct {
	Paragraphs []Paragraph
}

// Paragraph groups the cues of one transcript paragraph.
type Paragraph struct {
	Cues []Cue
}

// Cue is a single timed caption unit.
type Cue struct {
	Text string
}

// object is one decoded JSON object. Keys are looked up exactly as written,
// unlike struct decoding which folds case.
type object map[string]json.RawMessage

// field decodes the value under key into v. A missing key or a null value is an error.
func (o object) field(key string, v interface{}) error {
	raw, ok := o[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("missing key %q", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("key %q: %v", key, err)
	}
	return nil
}

// objects decodes the array under key into its member objects.
func (o object) objects(key string) ([]object, error) {
	var items []object
	if err := o.field(key, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Decode parses a transcript.json body into a Document.
// Any missing key or mistyped value fails the whole document.
func Decode(data []byte) (Document, error) {
	var root object
	if err := json.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if root == nil {
		return Document{}, fmt.Errorf("%w: document is null", ErrFormat)
	}

	paragraphs, err := root.objects("paragraphs")
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	doc := Document{Paragraphs: make([]Paragraph, 0, len(paragraphs))}
	for i, wp := range paragraphs {
		cues, err := wp.objects("cues")
		if err != nil {
			return Document{}, fmt.Errorf("%w: paragraph %d: %v", ErrFormat, i, err)
		}
		p := Paragraph{Cues: make([]Cue, 0, len(cues))}
		for j, wc := range cues {
			var text string
			if err := wc.field("text", &text); err != nil {
				return Document{}, fmt.Errorf("%w: paragraph %d cue %d: %v", ErrFormat, i, j, err)
			}
			p.Cues = append(p.Cues, Cue{Text: text})
		}
		doc.Paragraphs = append(doc.Paragraphs, p)
	}
	return doc, nil
}

// Format flattens a Document into display text.
// Every cue is followed by a space, with embedded newlines turned into spaces,
// and every paragraph is followed by a blank line.
func Format(doc Document) string {
	var sb strings.Builder
	for _, p := range doc.Paragraphs {
		for _, c := range p.Cues {
			sb.WriteString(strings.ReplaceAll(c.Text, "\n", " "))
			sb.WriteByte(' ')
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Parse decodes a transcript.json body and formats it.
// On error no text is returned.
func Parse(data []byte) (string, error) {
	doc, err := Decode(data)
	if err != nil {
		return "", err
	}
	return Format(doc), nil
}
