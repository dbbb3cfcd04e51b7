package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const channelBuffer = 50

// Stage defines the interface for a pipeline stage.
// Each stage processes input from an input channel and sends results to an output channel.
// The pipeline closes the output channel once Execute returns.
type Stage interface {
	Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error
}

// Pipeline manages a sequence of stages that process data in a chain.
type Pipeline struct {
	stages []Stage     // List of stages in the pipeline
	logger *zap.Logger // Logger for pipeline-wide logging
	sink   func(interface{})
}

// New creates a new Pipeline instance with the given logger.
func New(logger *zap.Logger) *Pipeline {
	return &Pipeline{
		logger: logger,
	}
}

// AddStage adds a stage to the pipeline's sequence.
func (p *Pipeline) AddStage(stage Stage) {
	p.stages = append(p.stages, stage)
}

// SetSink registers fn to receive every item the last stage emits.
// Without a sink those items are discarded.
func (p *Pipeline) SetSink(fn func(interface{})) {
	p.sink = fn
}

// Run executes the pipeline with the given input channel.
//
// The pipeline chains stages such that each stage's output becomes the next stage's input.
// The first stage uses the provided input channel, and subsequent stages use channels created internally.
// Output of the last stage is drained so that it never blocks.
//
// Returns ctx.Err() on cancellation, the joined stage errors if any stage failed, nil otherwise.
func (p *Pipeline) Run(ctx context.Context, input <-chan interface{}) error {
	if len(p.stages) == 0 {
		p.logger.Warn("no stages in pipeline")
		return nil
	}

	channels := make([]chan interface{}, len(p.stages))
	for i := range channels {
		channels[i] = make(chan interface{}, channelBuffer)
	}

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		errs    []error
		drained = make(chan struct{})
	)
	wg.Add(len(p.stages))

	for i, stage := range p.stages {
		inChan := input
		if i > 0 {
			inChan = channels[i-1]
		}
		outChan := channels[i]

		go func(stage Stage, in <-chan interface{}, out chan<- interface{}, idx int) {
			defer wg.Done()
			defer close(out)
			if err := stage.Execute(ctx, in, out, p.logger); err != nil {
				p.logger.Error("stage execution failed",
					zap.Int("stage", idx),
					zap.Error(err))
				errMu.Lock()
				errs = append(errs, fmt.Errorf("stage %d: %w", idx, err))
				errMu.Unlock()
				// keep upstream from blocking on a stage that stopped reading
				if in != nil {
					for range in {
					}
				}
			}
		}(stage, inChan, outChan, i)
	}

	go func() {
		defer close(drained)
		for item := range channels[len(channels)-1] {
			if p.sink != nil {
				p.sink(item)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		<-drained
		close(done)
	}()

	select {
	case <-done:
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		p.logger.Info("pipeline completed successfully")
		return nil
	case <-ctx.Done():
		p.logger.Info("pipeline canceled", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
