package persistence

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync/atomic"
	"ted2transcript/internal/models"

	"go.uber.org/zap"
)

// FilePersister implements pipeline.Stage, saving fetched transcripts to files.
type FilePersister struct {
	outputDir string // Directory where transcripts are saved

	succeeded atomic.Int64
	failed    atomic.Int64
}

const defaultOutputDir = "./transcripts" // Default directory for saving transcripts

// New creates a new FilePersister instance with an optional custom directory.
func New(outputDir ...string) *FilePersister {
	dir := defaultOutputDir
	if len(outputDir) > 0 && outputDir[0] != "" {
		dir = outputDir[0]
	}
	return &FilePersister{outputDir: dir}
}

// Filename returns the file name a transcript for talkURL is stored under.
func Filename(talkURL string) string {
	return base64.URLEncoding.EncodeToString([]byte(talkURL)) + ".txt"
}

// Execute saves results received on the input channel to files as part of the pipeline.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts.
//   - input: Channel of models.Result values.
//   - output: Output channel (unused, persistence is the final stage).
//   - logger: Logger for logging progress and errors.
//
// Returns:
//   - An error if the output directory cannot be created or ctx is canceled, nil otherwise.
func (fp *FilePersister) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	if err := os.MkdirAll(fp.outputDir, 0755); err != nil {
		return err
	}

	for item := range input {
		select {
		case <-ctx.Done():
			logger.Warn("persistence interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
			res, ok := item.(models.Result)
			if !ok {
				logger.Warn("invalid input type, expected Result", zap.Any("type", item))
				continue
			}
			if res.Error != nil {
				logger.Warn("skipping failed share",
					zap.String("short_url", res.ShortURL),
					zap.Error(res.Error))
				fp.failed.Add(1)
				continue
			}

			path := filepath.Join(fp.outputDir, Filename(res.TalkURL))
			data := []byte(res.Transcript + res.TalkURL + "\n")

			logger.Debug("persisting transcript", zap.String("filepath", path))
			if err := os.WriteFile(path, data, 0644); err != nil {
				logger.Warn("persist failed",
					zap.String("talk_url", res.TalkURL),
					zap.String("filepath", path),
					zap.Error(err))
				fp.failed.Add(1)
				continue
			}
			fp.succeeded.Add(1)
		}
	}

	logger.Info("persistence statistics",
		zap.Int64("successful", fp.succeeded.Load()),
		zap.Int64("failed", fp.failed.Load()))
	return nil
}

// Succeeded returns the number of transcripts written.
func (fp *FilePersister) Succeeded() int64 {
	return fp.succeeded.Load()
}

// Failed returns the number of shares that produced no transcript file.
func (fp *FilePersister) Failed() int64 {
	return fp.failed.Load()
}
