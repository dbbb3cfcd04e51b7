package filereader

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"ted2transcript/internal/models"

	"go.uber.org/zap"
)

// StdinPath makes FileReader read from standard input.
const StdinPath = "-"

// maxLineSize bounds a single shared text. Share payloads are short but may carry a title and description.
const maxLineSize = 1024 * 1024

// FileReader implements pipeline.Stage, emitting one models.SharedText per non-blank line.
type FileReader struct {
	path       string
	skipHeader bool
	stdin      io.Reader
}

// New creates a new FileReader for path. Use StdinPath to read standard input.
func New(path string, skipHeader bool) *FileReader {
	return &FileReader{path: path, skipHeader: skipHeader, stdin: os.Stdin}
}

func (fr *FileReader) open() (io.ReadCloser, error) {
	if fr.path == StdinPath {
		return io.NopCloser(fr.stdin), nil
	}
	return os.Open(fr.path)
}

// Execute reads the file and sends each shared text to output. The input channel is ignored.
func (fr *FileReader) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	file, err := fr.open()
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	isHeader := fr.skipHeader
	lineNo := 0
	textCount := 0

	for scanner.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			logger.Warn("file reading interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
			if isHeader {
				isHeader = false
				continue
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			logger.Debug("read shared text", zap.Int("line", lineNo))
			output <- models.SharedText{Line: lineNo, Text: text}
			textCount++
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	logger.Info("finished reading shared texts", zap.Int("total", textCount))
	return nil
}
