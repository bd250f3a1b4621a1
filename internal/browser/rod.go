package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// RodOptions configures a headless Chromium session.
type RodOptions struct {
	Headless        bool
	BinPath         string
	NavigateTimeout time.Duration
	Stealth         *StealthConfig
}

// RodSession implements Session on a headless Chromium driven by Rod.
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	opts     RodOptions
	closed   bool
	logger   *slog.Logger
}

// OpenRod launches Chromium and opens a single page.
func OpenRod(ctx context.Context, opts RodOptions, logger *slog.Logger) (*RodSession, error) {
	rs := &RodSession{
		opts:   opts,
		logger: logger.With("component", "rod_session"),
	}

	rs.launcher = launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")
	if opts.BinPath != "" {
		rs.launcher = rs.launcher.Bin(opts.BinPath)
	}
	if opts.Stealth != nil && opts.Stealth.WindowSize != "" {
		rs.launcher = rs.launcher.Set("window-size", opts.Stealth.WindowSize)
	}

	controlURL, err := rs.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	rs.browser = rod.New().ControlURL(controlURL)
	if err := rs.browser.Connect(); err != nil {
		rs.launcher.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	if err := rs.openPage(); err != nil {
		_ = rs.Close()
		return nil, err
	}

	rs.logger.Info("browser session ready",
		"headless", opts.Headless,
		"stealth", opts.Stealth != nil,
	)
	return rs, nil
}

func (rs *RodSession) openPage() error {
	var err error
	if rs.opts.Stealth != nil {
		rs.page, err = stealth.Page(rs.browser)
	} else {
		rs.page, err = rs.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	if sc := rs.opts.Stealth; sc != nil {
		if sc.UserAgent != "" {
			err := rs.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
				UserAgent:      sc.UserAgent,
				AcceptLanguage: sc.Language,
				Platform:       sc.Platform,
			})
			if err != nil {
				rs.logger.Warn("failed to set user agent", "error", err)
			}
		}
		if _, err := rs.page.EvalOnNewDocument(sc.StealthJS()); err != nil {
			rs.logger.Warn("failed to install stealth script", "error", err)
		}
	}
	return nil
}

// Navigate implements Session.
func (rs *RodSession) Navigate(ctx context.Context, url string) error {
	if rs.closed {
		return types.ErrSessionClosed
	}

	p := rs.page.Context(ctx)
	if rs.opts.NavigateTimeout > 0 {
		p = p.Timeout(rs.opts.NavigateTimeout)
	}
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		rs.logger.Warn("page load event not seen, continuing", "url", url, "error", err)
	}
	return nil
}

// URL implements Session.
func (rs *RodSession) URL() string {
	if rs.page == nil {
		return ""
	}
	info, err := rs.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// WaitFor implements Session.
func (rs *RodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if rs.closed {
		return types.ErrSessionClosed
	}

	p := rs.page.Context(ctx).Timeout(timeout)
	var err error
	if IsXPath(selector) {
		_, err = p.ElementX(selector)
	} else {
		_, err = p.Element(selector)
	}
	return waitError(ctx, selector, err)
}

// FindElements implements Session.
func (rs *RodSession) FindElements(ctx context.Context, selector string) ([]Element, error) {
	if rs.closed {
		return nil, types.ErrSessionClosed
	}

	p := rs.page.Context(ctx)
	var els rod.Elements
	var err error
	if IsXPath(selector) {
		els, err = p.ElementsX(selector)
	} else {
		els, err = p.Elements(selector)
	}
	if err != nil {
		return nil, err
	}
	return wrapRod(els), nil
}

// FindElement implements Session.
func (rs *RodSession) FindElement(ctx context.Context, selector string) (types.Optional[Element], error) {
	if rs.closed {
		return types.NotFound[Element](), types.ErrSessionClosed
	}

	p := rs.page.Context(ctx)
	var has bool
	var el *rod.Element
	var err error
	if IsXPath(selector) {
		has, el, err = p.HasX(selector)
	} else {
		has, el, err = p.Has(selector)
	}
	if err != nil || !has {
		return types.NotFound[Element](), err
	}
	return types.Found[Element](&rodElement{el: el}), nil
}

// ScrollIntoView implements Session.
func (rs *RodSession) ScrollIntoView(ctx context.Context, el Element) error {
	re, ok := el.(*rodElement)
	if !ok {
		return fmt.Errorf("foreign element %T", el)
	}
	return re.el.Context(ctx).ScrollIntoView()
}

// Click implements Session. The click is dispatched from JavaScript so that
// overlays covering the control do not swallow it.
func (rs *RodSession) Click(ctx context.Context, el Element, timeout time.Duration) error {
	if rs.closed {
		return types.ErrSessionClosed
	}
	re, ok := el.(*rodElement)
	if !ok {
		return fmt.Errorf("%w: foreign element %T", types.ErrNotInteractable, el)
	}

	target := re.el.Context(ctx).Timeout(timeout)
	if _, err := target.WaitInteractable(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", types.ErrNotInteractable, err)
	}
	if _, err := target.Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("click: %w", err)
	}

	if err := rs.page.Context(ctx).Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		rs.logger.Debug("page did not settle after click, continuing", "error", err)
	}
	return nil
}

// Eval implements Session.
func (rs *RodSession) Eval(ctx context.Context, js string) (string, error) {
	if rs.closed {
		return "", types.ErrSessionClosed
	}
	res, err := rs.page.Context(ctx).Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

// Screenshot implements Session.
func (rs *RodSession) Screenshot(ctx context.Context, path string) error {
	if rs.closed {
		return types.ErrSessionClosed
	}
	img, err := rs.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return os.WriteFile(path, img, 0o644)
}

// Close implements Session.
func (rs *RodSession) Close() error {
	if rs.closed {
		return nil
	}
	rs.closed = true

	var errs []error
	if rs.page != nil {
		errs = append(errs, rs.page.Close())
	}
	if rs.browser != nil {
		errs = append(errs, rs.browser.Close())
	}
	if rs.launcher != nil {
		rs.launcher.Cleanup()
	}
	rs.logger.Info("browser session closed")
	return errors.Join(errs...)
}

// rodElement is an Element backed by a Rod element.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	s, err := e.el.Text()
	if err != nil {
		return "", err
	}
	return collapse(s), nil
}

func (e *rodElement) Attribute(name string) (types.Optional[string], error) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return types.NotFound[string](), err
	}
	return types.Found(*v), nil
}

func (e *rodElement) Find(selector string) (types.Optional[Element], error) {
	var has bool
	var el *rod.Element
	var err error
	if IsXPath(selector) {
		has, el, err = e.el.HasX(selector)
	} else {
		has, el, err = e.el.Has(selector)
	}
	if err != nil || !has {
		return types.NotFound[Element](), err
	}
	return types.Found[Element](&rodElement{el: el}), nil
}

func (e *rodElement) FindAll(selector string) ([]Element, error) {
	var els rod.Elements
	var err error
	if IsXPath(selector) {
		els, err = e.el.ElementsX(selector)
	} else {
		els, err = e.el.Elements(selector)
	}
	if err != nil {
		return nil, err
	}
	return wrapRod(els), nil
}

func wrapRod(els rod.Elements) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out
}

// waitError maps a failed bounded wait onto the session error contract.
func waitError(ctx context.Context, selector string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", types.ErrTimeout, selector)
	}
	return err
}
