package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"ted2transcript/internal/models"
	"ted2transcript/internal/modules/formatter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrUnexpectedResponse is returned when a short link does not answer with a usable redirect.
	ErrUnexpectedResponse = errors.New("unexpected short link response")
	// ErrNetwork covers transport failures and non-2xx transcript responses.
	ErrNetwork = errors.New("network failure")
)

const (
	defaultLanguage   = "en"
	defaultMaxWorkers = 4
	transcriptPath    = "transcript.json"
)

// Dispatcher runs a function on the goroutine that owns the display.
type Dispatcher interface {
	Post(fn func())
}

// Fetcher resolves TED short links and downloads their transcripts.
// It implements pipeline.Stage for batch processing.
type Fetcher struct {
	client     *http.Client
	language   string
	maxWorkers int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient uses a copy of c. Redirect following is always disabled on the copy.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		cp := *c
		f.client = &cp
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the client default.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithLanguage selects the transcript language.
func WithLanguage(lang string) Option {
	return func(f *Fetcher) {
		if lang != "" {
			f.language = lang
		}
	}
}

// WithMaxWorkers bounds concurrent fetches in batch mode.
func WithMaxWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxWorkers = n
		}
	}
}

// WithRateLimit limits batch fetches to rps short links per second.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used by Fetch and FetchAsync.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// New creates a Fetcher. Redirects are never followed so the short link target can be read.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{},
		language:   defaultLanguage,
		maxWorkers: defaultMaxWorkers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return f
}

// Fetch resolves shortURL to its talk page and returns the formatted transcript.
// The transcript request is only issued once the short link has been resolved.
func (f *Fetcher) Fetch(ctx context.Context, shortURL string) models.Result {
	start := time.Now()
	logger := f.logger.With(zap.String("request_id", uuid.NewString()), zap.String("short_url", shortURL))

	talkURL, err := f.resolveTalkURL(ctx, shortURL)
	if err != nil {
		logger.Warn("short link resolution failed", zap.Error(err))
		return models.Result{ShortURL: shortURL, Error: err}
	}
	logger.Debug("resolved talk url", zap.String("talk_url", talkURL))

	transcriptURL, err := TranscriptURL(talkURL, f.language)
	if err != nil {
		logger.Warn("bad talk url", zap.String("talk_url", talkURL), zap.Error(err))
		return models.Result{ShortURL: shortURL, TalkURL: talkURL, Error: err}
	}

	body, err := f.get(ctx, transcriptURL)
	if err != nil {
		logger.Warn("transcript download failed", zap.String("transcript_url", transcriptURL), zap.Error(err))
		return models.Result{ShortURL: shortURL, TalkURL: talkURL, Error: err}
	}

	transcript, err := formatter.Parse(body)
	if err != nil {
		logger.Warn("transcript parse failed", zap.String("transcript_url", transcriptURL), zap.Error(err))
		return models.Result{ShortURL: shortURL, TalkURL: talkURL, Error: err}
	}

	logger.Info("transcript fetched",
		zap.String("talk_url", talkURL),
		zap.Int("chars", len(transcript)),
		zap.Duration("duration", time.Since(start)))
	return models.Result{ShortURL: shortURL, TalkURL: talkURL, Transcript: transcript}
}

// FetchAsync runs Fetch in the background and hands the result to cb on d.
func (f *Fetcher) FetchAsync(ctx context.Context, shortURL string, d Dispatcher, cb func(models.Result)) {
	go func() {
		res := f.Fetch(ctx, shortURL)
		d.Post(func() { cb(res) })
	}()
}

// TranscriptURL appends the transcript.json segment to talkURL and sets the language query parameter.
// Other query parameters on talkURL are kept.
func TranscriptURL(talkURL, language string) (string, error) {
	u, err := url.Parse(talkURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad talk url %q: %v", ErrUnexpectedResponse, talkURL, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("%w: talk url %q is not absolute", ErrUnexpectedResponse, talkURL)
	}
	if language == "" {
		language = defaultLanguage
	}

	u = u.JoinPath(transcriptPath)
	q := u.Query()
	q.Set("language", language)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) resolveTalkURL(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return "", fmt.Errorf("%w: status %d from %s", ErrUnexpectedResponse, resp.StatusCode, shortURL)
	}

	loc, err := resp.Location()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return loc.String(), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: bad status: %d", ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read failed: %w", ErrNetwork, err)
	}
	return data, nil
}

// Execute fetches a transcript for every short link on the input channel.
// models.Result items already carrying an error are forwarded unchanged.
func (f *Fetcher) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, f.maxWorkers)
	defer wg.Wait()

	for item := range input {
		select {
		case <-ctx.Done():
			logger.Warn("fetching interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
		}

		switch v := item.(type) {
		case models.Result:
			output <- v
		case string:
			if f.limiter != nil {
				if err := f.limiter.Wait(ctx); err != nil {
					return err
				}
			}

			wg.Add(1)
			semaphore <- struct{}{}
			go func(shortURL string) {
				defer wg.Done()
				defer func() { <-semaphore }()
				output <- f.Fetch(ctx, shortURL)
			}(v)
		default:
			logger.Warn("invalid input type, expected short link", zap.Any("type", item))
		}
	}
	return nil
}
