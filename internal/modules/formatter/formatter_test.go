package formatter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "embedded newline becomes space",
			body: `{"paragraphs":[{"cues":[{"text":"Hello\nworld"}]}]}`,
			want: "Hello world \n\n",
		},
		{
			name: "cues are space joined",
			body: `{"paragraphs":[{"cues":[{"text":"So"},{"text":"here we are."}]}]}`,
			want: "So here we are. \n\n",
		},
		{
			name: "two paragraphs",
			body: `{"paragraphs":[{"cues":[{"text":"First"}]},{"cues":[{"text":"Second"}]}]}`,
			want: "First \n\nSecond \n\n",
		},
		{
			name: "extra keys are ignored",
			body: `{"paragraphs":[{"cues":[{"text":"Hi","time":1200}]}],"language":"en"}`,
			want: "Hi \n\n",
		},
		{
			name: "empty paragraph list",
			body: `{"paragraphs":[]}`,
			want: "",
		},
		{
			name: "paragraph without cues",
			body: `{"paragraphs":[{"cues":[]}]}`,
			want: "\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_ParagraphSeparator(t *testing.T) {
	got, err := Parse([]byte(`{"paragraphs":[{"cues":[{"text":"one"}]},{"cues":[{"text":"two"}]}]}`))
	require.NoError(t, err)

	first, rest, found := strings.Cut(got, "\n\n")
	require.True(t, found)
	assert.Equal(t, "one ", first)
	assert.NotContains(t, first, "\n")
	assert.Equal(t, "two \n\n", rest)
	assert.Equal(t, 1, strings.Count(strings.TrimSuffix(got, "\n\n"), "\n\n"))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing paragraphs", body: `{"cues":[]}`},
		{name: "null paragraphs", body: `{"paragraphs":null}`},
		{name: "paragraphs not an array", body: `{"paragraphs":"nope"}`},
		{name: "missing cues", body: `{"paragraphs":[{"cues":[{"text":"ok"}]},{}]}`},
		{name: "missing text", body: `{"paragraphs":[{"cues":[{"text":"ok"},{"start":0}]}]}`},
		{name: "text not a string", body: `{"paragraphs":[{"cues":[{"text":7}]}]}`},
		{name: "paragraphs key in other case", body: `{"Paragraphs":[{"cues":[{"text":"x"}]}]}`},
		{name: "cues key in other case", body: `{"paragraphs":[{"CUES":[{"text":"x"}]}]}`},
		{name: "text key in other case", body: `{"paragraphs":[{"cues":[{"Text":"x"}]}]}`},
		{name: "null paragraph", body: `{"paragraphs":[null]}`},
		{name: "null text", body: `{"paragraphs":[{"cues":[{"text":null}]}]}`},
		{name: "cue not an object", body: `{"paragraphs":[{"cues":["x"]}]}`},
		{name: "document is null", body: `null`},
		{name: "not json", body: `<html>Not Found</html>`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "got %v", err)
			assert.Empty(t, got)
		})
	}
}
