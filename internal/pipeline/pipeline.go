package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// Middleware processes a raw record and returns the (possibly modified)
// record. Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.RawRecord) (*types.RawRecord, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
	onDrop      func(stage string, rec *types.RawRecord)
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// OnDrop registers a hook called whenever a middleware drops a record.
func (p *Pipeline) OnDrop(fn func(stage string, rec *types.RawRecord)) {
	p.onDrop = fn
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.RawRecord) (*types.RawRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{Stage: mw.Name(), URL: current.URL, Err: err}
		}
		if result == nil {
			p.logger.Info("record dropped", "stage", mw.Name(), "url", rec.URL, "product", rec.ProductName)
			if p.onDrop != nil {
				p.onDrop(mw.Name(), rec)
			}
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
