// Package view is the terminal rendition of the transcript screen.
//
// A View owns two text surfaces, the transcript and the talk URL. All of its
// methods except Done must be called on the main loop goroutine.
package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"ted2transcript/internal/models"
	"ted2transcript/internal/modules/extractor"
	"ted2transcript/internal/modules/fetcher"
	"ted2transcript/internal/modules/state"

	"go.uber.org/zap"
)

// LoadingText is shown in the transcript surface until a result arrives.
const LoadingText = "NOW LOADING..."

// Instance state keys.
const (
	KeyTranscript = "transcript"
	KeyTalkURL    = "talk_url"
)

// TranscriptFetcher starts a transcript fetch and delivers the result through d.
type TranscriptFetcher interface {
	FetchAsync(ctx context.Context, shortURL string, d fetcher.Dispatcher, cb func(models.Result))
}

// View shows a transcript and the talk it belongs to.
type View struct {
	out        io.Writer
	fetcher    TranscriptFetcher
	dispatcher fetcher.Dispatcher
	logger     *zap.Logger

	transcript string
	talkURL    string
	restored   bool
	err        error

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a View that renders to out.
func New(out io.Writer, f TranscriptFetcher, d fetcher.Dispatcher, logger *zap.Logger) *View {
	return &View{
		out:        out,
		fetcher:    f,
		dispatcher: d,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// OnCreate brings the view up. A saved bundle holding both surfaces is shown
// as is; otherwise the short link in sharedText is fetched.
func (v *View) OnCreate(ctx context.Context, saved *state.Bundle, sharedText string) {
	v.transcript = LoadingText

	if saved.Has(KeyTranscript, KeyTalkURL) {
		v.transcript, _ = saved.GetString(KeyTranscript)
		v.talkURL, _ = saved.GetString(KeyTalkURL)
		v.restored = true
		v.logger.Debug("restored instance state", zap.String("talk_url", v.talkURL))
		v.finish()
		return
	}

	shortURL, ok := extractor.Extract(sharedText)
	if !ok {
		v.logger.Warn("shared text has no short link", zap.Int("length", len(sharedText)))
		v.show(models.Result{Error: extractor.ErrNoLink})
		return
	}

	v.logger.Info("fetching transcript", zap.String("short_url", shortURL))
	v.fetcher.FetchAsync(ctx, shortURL, v.dispatcher, v.show)
}

// OnSaveInstanceState stores both surfaces in b.
func (v *View) OnSaveInstanceState(b *state.Bundle) {
	b.PutString(KeyTranscript, v.transcript)
	b.PutString(KeyTalkURL, v.talkURL)
}

// Transcript returns the transcript surface text.
func (v *View) Transcript() string {
	return v.transcript
}

// TalkURL returns the talk URL surface text.
func (v *View) TalkURL() string {
	return v.talkURL
}

// Restored reports whether the surfaces came from saved state.
func (v *View) Restored() bool {
	return v.restored
}

// Err returns the error shown in the transcript surface, if any.
func (v *View) Err() error {
	return v.err
}

// Done is closed once the view has something other than the loading text to show.
func (v *View) Done() <-chan struct{} {
	return v.done
}

func (v *View) show(res models.Result) {
	if res.Error != nil {
		v.err = res.Error
		v.logger.Error("transcript unavailable", zap.String("short_url", res.ShortURL), zap.Error(res.Error))
		v.transcript = res.Error.Error()
	} else {
		v.transcript = res.Transcript
		v.talkURL = res.TalkURL
	}
	v.finish()
}

func (v *View) finish() {
	v.doneOnce.Do(func() {
		if err := v.render(); err != nil {
			v.logger.Warn("render failed", zap.Error(err))
		}
		close(v.done)
	})
}

func (v *View) render() error {
	text := v.transcript
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := fmt.Fprint(v.out, text); err != nil {
		return err
	}
	if v.talkURL == "" {
		return nil
	}
	_, err := fmt.Fprintln(v.out, v.talkURL)
	return err
}
