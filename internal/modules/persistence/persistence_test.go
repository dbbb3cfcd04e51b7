package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"ted2transcript/internal/models"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestFilePersister_Execute(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name         string
		results      []models.Result
		expectFiles  int
		expectFailed int64
	}{
		{
			name: "successful persistence",
			results: []models.Result{
				{TalkURL: "https://www.ted.com/talks/example", Transcript: "Hello world \n\n"},
			},
			expectFiles: 1,
		},
		{
			name: "with failed result",
			results: []models.Result{
				{ShortURL: "https://go.ted.com/bad", Error: fmt.Errorf("bad status: 404")},
				{TalkURL: "https://www.ted.com/talks/other", Transcript: "Hi \n\n"},
			},
			expectFiles:  1,
			expectFailed: 1,
		},
		{
			name:        "empty input",
			results:     []models.Result{},
			expectFiles: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			fp := New(tmpDir)

			input := make(chan interface{}, len(tt.results)+1)
			for _, r := range tt.results {
				input <- r
			}
			input <- "not a result"
			close(input)

			if err := fp.Execute(context.Background(), input, nil, logger); err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			files, _ := filepath.Glob(filepath.Join(tmpDir, "*.txt"))
			if len(files) != tt.expectFiles {
				t.Errorf("expected %d files, got %d", tt.expectFiles, len(files))
			}
			if fp.Failed() != tt.expectFailed {
				t.Errorf("expected %d failed, got %d", tt.expectFailed, fp.Failed())
			}
			if fp.Succeeded() != int64(tt.expectFiles) {
				t.Errorf("expected %d succeeded, got %d", tt.expectFiles, fp.Succeeded())
			}
		})
	}
}

func TestFilePersister_FileContent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tmpDir := t.TempDir()
	fp := New(tmpDir)

	input := make(chan interface{}, 1)
	input <- models.Result{TalkURL: "https://www.ted.com/talks/example", Transcript: "Hello world \n\n"}
	close(input)

	if err := fp.Execute(context.Background(), input, nil, logger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, Filename("https://www.ted.com/talks/example")))
	if err != nil {
		t.Fatalf("transcript file missing: %v", err)
	}
	want := "Hello world \n\nhttps://www.ted.com/talks/example\n"
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, string(data))
	}
}

func TestNew_DefaultDir(t *testing.T) {
	if fp := New(); fp.outputDir != defaultOutputDir {
		t.Errorf("expected %s, got %s", defaultOutputDir, fp.outputDir)
	}
	if fp := New(""); fp.outputDir != defaultOutputDir {
		t.Errorf("expected %s for empty dir, got %s", defaultOutputDir, fp.outputDir)
	}
}
