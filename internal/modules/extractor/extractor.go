package extractor

import (
	"context"
	"errors"
	"regexp"
	"ted2transcript/internal/models"

	"go.uber.org/zap"
)

// ErrNoLink is reported when shared text carries no TED short link.
var ErrNoLink = errors.New("no TED short link found in shared text")

var shortLinkPattern = regexp.MustCompile(`https://go\.ted\.com/\w+`)

// Extract returns the first TED short link found in text.
// The match is case-sensitive and is not checked for reachability.
func Extract(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	link := shortLinkPattern.FindString(text)
	return link, link != ""
}

// Stage implements pipeline.Stage, turning shared texts into short links.
type Stage struct{}

// New creates a new extractor Stage.
func New() *Stage {
	return &Stage{}
}

// Execute reads models.SharedText items and emits a string short link for each match.
// Items without a link are forwarded as a models.Result carrying ErrNoLink so they are counted downstream.
func (s *Stage) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	for item := range input {
		select {
		case <-ctx.Done():
			logger.Warn("link extraction interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
			shared, ok := item.(models.SharedText)
			if !ok {
				logger.Warn("invalid input type, expected SharedText", zap.Any("type", item))
				continue
			}
			link, found := Extract(shared.Text)
			if !found {
				logger.Debug("no short link", zap.Int("line", shared.Line))
				output <- models.Result{Error: ErrNoLink}
				continue
			}
			logger.Debug("extracted short link", zap.Int("line", shared.Line), zap.String("short_url", link))
			output <- link
		}
	}
	return nil
}
