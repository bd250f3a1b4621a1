package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend names accepted by NewOpener.
const (
	BackendBrowser = "browser"
	BackendHTTP    = "http"
)

// Options selects and configures a session backend.
type Options struct {
	Backend         string
	Headless        bool
	Stealth         bool
	BinPath         string
	UserAgents      []string
	NavigateTimeout time.Duration
	MaxBodySize     int64
}

// NewOpener returns an Opener for the configured backend.
func NewOpener(opts Options, logger *slog.Logger) (Opener, error) {
	switch opts.Backend {
	case BackendBrowser, "":
		return func(ctx context.Context) (Session, error) {
			ro := RodOptions{
				Headless:        opts.Headless,
				BinPath:         opts.BinPath,
				NavigateTimeout: opts.NavigateTimeout,
			}
			if opts.Stealth {
				ro.Stealth = DefaultStealthConfig()
				if len(opts.UserAgents) > 0 {
					ro.Stealth.UserAgent = opts.UserAgents[0]
				}
			}
			return OpenRod(ctx, ro, logger)
		}, nil

	case BackendHTTP:
		return func(ctx context.Context) (Session, error) {
			src, err := NewHTTPSource(HTTPSourceOptions{
				Timeout:     opts.NavigateTimeout,
				UserAgents:  opts.UserAgents,
				MaxBodySize: opts.MaxBodySize,
			}, logger)
			if err != nil {
				return nil, err
			}
			return NewStaticSession(src, logger), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown fetcher backend %q (want %q or %q)", opts.Backend, BackendBrowser, BackendHTTP)
	}
}
