// Package engine walks the pages of a product listing and collects the raw
// records of every page it visits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/IshaanNene/catalogcrawl/internal/browser"
	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/observability"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// State is the pagination driver's position in its lifecycle.
type State int32

const (
	StateLoading    State = 0
	StateExtracting State = 1
	StateAdvancing  State = 2
	StateDone       State = 3
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateExtracting:
		return "extracting"
	case StateAdvancing:
		return "advancing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason records why the driver reached StateDone.
type StopReason string

const (
	StopMaxPages         StopReason = "max_pages"
	StopNoNextControl    StopReason = "no_next_control"
	StopNextNotClickable StopReason = "next_not_clickable"
	StopLoadTimeout      StopReason = "load_timeout"
	StopCancelled        StopReason = "cancelled"
	StopExtractFailed    StopReason = "extract_failed"
)

// Debug screenshot file names.
const (
	TimeoutScreenshot   = "debug_timeout.png"
	FinalPageScreenshot = "debug_final_page.png"
)

// Extractor reads the records of the page currently loaded in a session.
type Extractor interface {
	Extract(ctx context.Context, s browser.Session) ([]types.RawRecord, error)
}

// Options controls pagination.
type Options struct {
	ListingSelector  string
	NextSelector     string
	MaxPages         int
	LoadTimeout      time.Duration
	NextTimeout      time.Duration
	ScrollSettle     time.Duration
	PageDelay        time.Duration
	DebugScreenshots bool
	ScreenshotDir    string
}

// OptionsFromConfig builds driver options from the scrape configuration.
func OptionsFromConfig(cfg config.ScrapeConfig) Options {
	return Options{
		ListingSelector:  cfg.Selectors.Listing,
		NextSelector:     cfg.Selectors.Next,
		MaxPages:         cfg.MaxPages,
		LoadTimeout:      cfg.LoadTimeout,
		NextTimeout:      cfg.NextTimeout,
		ScrollSettle:     cfg.ScrollSettle,
		PageDelay:        cfg.PageDelay,
		DebugScreenshots: cfg.DebugScreenshots,
		ScreenshotDir:    cfg.ScreenshotDir,
	}
}

// Result is what a finished pagination run yields.
type Result struct {
	Records    []types.RawRecord
	Pages      int
	StopReason StopReason

	// Transient holds the page-level condition that ended the run, if any.
	Transient *types.TransientPageError
}

// Driver is the pagination state machine. A Driver runs once.
type Driver struct {
	opts      Options
	extractor Extractor
	metrics   *observability.Metrics
	logger    *slog.Logger

	state State
}

// NewDriver creates a pagination driver.
func NewDriver(opts Options, ex Extractor, metrics *observability.Metrics, logger *slog.Logger) *Driver {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &Driver{
		opts:      opts,
		extractor: ex,
		metrics:   metrics,
		logger:    logger.With("component", "pagination"),
	}
}

// State returns the driver's current state.
func (d *Driver) State() State { return d.state }

// Run walks pages starting from the one currently loaded in s until a
// terminal condition is met. Page-level timeouts end the run without an
// error; records gathered so far are always returned.
func (d *Driver) Run(ctx context.Context, s browser.Session) *Result {
	res := &Result{}
	page := 1
	d.transition(StateLoading)

	for d.state != StateDone {
		if ctx.Err() != nil {
			d.stop(res, StopCancelled, nil)
			break
		}

		switch d.state {
		case StateLoading:
			if err := s.WaitFor(ctx, d.opts.ListingSelector, d.opts.LoadTimeout); err != nil {
				if ctx.Err() != nil {
					d.stop(res, StopCancelled, nil)
					break
				}
				d.metrics.PageTimedOut()
				d.screenshot(ctx, s, TimeoutScreenshot)
				d.stop(res, StopLoadTimeout, &types.TransientPageError{Stage: "load", URL: s.URL(), Err: err})
				break
			}
			d.transition(StateExtracting)

		case StateExtracting:
			records, err := d.extractor.Extract(ctx, s)
			res.Records = append(res.Records, records...)
			if err != nil {
				if ctx.Err() != nil {
					d.stop(res, StopCancelled, nil)
					break
				}
				d.stop(res, StopExtractFailed, &types.TransientPageError{Stage: "extract", URL: s.URL(), Err: err})
				break
			}
			res.Pages = page
			d.metrics.PageVisited()
			d.logger.Info("page extracted",
				"page", page,
				"records", len(records),
				"total", len(res.Records),
			)
			d.transition(StateAdvancing)

		case StateAdvancing:
			if page >= d.opts.MaxPages {
				d.logger.Info("page limit reached", "max_pages", d.opts.MaxPages)
				d.stop(res, StopMaxPages, nil)
				break
			}
			if reason, err := d.advance(ctx, s); err != nil {
				d.screenshot(ctx, s, FinalPageScreenshot)
				d.stop(res, reason, &types.TransientPageError{Stage: "advance", URL: s.URL(), Err: err})
				break
			}
			page++
			d.transition(StateLoading)
		}
	}

	return res
}

// advance locates the "next" control and clicks it.
func (d *Driver) advance(ctx context.Context, s browser.Session) (StopReason, error) {
	found, err := s.FindElement(ctx, d.opts.NextSelector)
	if err != nil {
		return StopNoNextControl, fmt.Errorf("find next control: %w", err)
	}
	next, ok := found.Get()
	if !ok {
		return StopNoNextControl, errors.New("no next control on page")
	}

	d.scrollTo(ctx, s, next)
	if err := sleep(ctx, max(d.opts.ScrollSettle, d.opts.PageDelay)); err != nil {
		return StopCancelled, err
	}

	if err := s.Click(ctx, next, d.opts.NextTimeout); err != nil {
		return StopNextNotClickable, err
	}
	return "", nil
}

// scrollTo centers the next control with a script, falling back to the
// session's own scrolling when scripts are unsupported or miss the control.
func (d *Driver) scrollTo(ctx context.Context, s browser.Session, next browser.Element) {
	res, err := s.Eval(ctx, browser.ScrollIntoViewJS(d.opts.NextSelector))
	if err == nil && res == "true" {
		return
	}
	if err != nil && !errors.Is(err, types.ErrUnsupported) {
		d.logger.Debug("scripted scroll failed", "error", err)
	}
	if err := s.ScrollIntoView(ctx, next); err != nil {
		d.logger.Debug("scroll into view failed", "error", err)
	}
}

// sleep waits for dur or until ctx is done.
func sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Driver) transition(to State) {
	d.logger.Debug("state transition", "from", d.state, "to", to)
	d.state = to
}

func (d *Driver) stop(res *Result, reason StopReason, cause *types.TransientPageError) {
	res.StopReason = reason
	res.Transient = cause
	d.metrics.Stopped(string(reason))
	if cause != nil {
		d.logger.Info("pagination ended", "reason", reason, "error", cause)
	} else {
		d.logger.Info("pagination ended", "reason", reason)
	}
	d.transition(StateDone)
}

func (d *Driver) screenshot(ctx context.Context, s browser.Session, name string) {
	if !d.opts.DebugScreenshots {
		return
	}
	path := filepath.Join(d.opts.ScreenshotDir, name)
	if err := s.Screenshot(ctx, path); err != nil {
		d.logger.Warn("debug screenshot failed", "path", path, "error", err)
		return
	}
	d.logger.Info("debug screenshot saved", "path", path)
}

// Scrape opens a session, loads startURL and runs the driver over it. The
// session is closed on every return path.
func Scrape(ctx context.Context, open browser.Opener, startURL string, d *Driver) (*Result, error) {
	s, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			d.logger.Warn("session close failed", "error", cerr)
		}
	}()

	d.logger.Info("opening listing", "url", startURL)
	if err := s.Navigate(ctx, startURL); err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	return d.Run(ctx, s), nil
}
