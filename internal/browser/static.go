package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// PageSource loads the HTML of a page.
type PageSource interface {
	// Load returns the page body and its final URL after redirects.
	Load(ctx context.Context, rawURL string) ([]byte, string, error)
}

// StaticSession is a Session over server-rendered HTML. Pages never change
// after loading, so waits resolve immediately and clicking a control follows
// its link.
type StaticSession struct {
	source PageSource
	doc    *goquery.Document
	url    string
	closed bool
	logger *slog.Logger
}

// NewStaticSession creates a session that loads pages from source.
func NewStaticSession(source PageSource, logger *slog.Logger) *StaticSession {
	return &StaticSession{
		source: source,
		logger: logger.With("component", "static_session"),
	}
}

// Navigate implements Session.
func (s *StaticSession) Navigate(ctx context.Context, rawURL string) error {
	if s.closed {
		return types.ErrSessionClosed
	}

	body, finalURL, err := s.source.Load(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("load %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", rawURL, err)
	}

	s.doc = doc
	s.url = finalURL
	s.logger.Debug("page loaded", "url", finalURL, "size", len(body))
	return nil
}

// URL implements Session.
func (s *StaticSession) URL() string { return s.url }

// WaitFor implements Session.
func (s *StaticSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if selectAll(s.doc.Selection, selector).Length() > 0 {
		return nil
	}
	return fmt.Errorf("%w: %s not present", types.ErrTimeout, selector)
}

// FindElements implements Session.
func (s *StaticSession) FindElements(ctx context.Context, selector string) ([]Element, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return wrapSelection(selectAll(s.doc.Selection, selector)), nil
}

// FindElement implements Session.
func (s *StaticSession) FindElement(ctx context.Context, selector string) (types.Optional[Element], error) {
	if err := s.ready(ctx); err != nil {
		return types.NotFound[Element](), err
	}
	return first(selectAll(s.doc.Selection, selector)), nil
}

// ScrollIntoView implements Session. Static pages have no viewport.
func (s *StaticSession) ScrollIntoView(ctx context.Context, el Element) error {
	return s.ready(ctx)
}

// Click implements Session by following the link carried by el or by its
// first descendant anchor.
func (s *StaticSession) Click(ctx context.Context, el Element, timeout time.Duration) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	se, ok := el.(*staticElement)
	if !ok {
		return fmt.Errorf("%w: foreign element %T", types.ErrNotInteractable, el)
	}

	href, ok := se.sel.Attr("href")
	if !ok {
		href, ok = se.sel.Find("a[href]").First().Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return fmt.Errorf("%w: control has no link", types.ErrNotInteractable)
	}

	target, err := resolve(s.url, href)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrNotInteractable, err)
	}
	return s.Navigate(ctx, target)
}

// Eval implements Session. Static pages do not run scripts.
func (s *StaticSession) Eval(ctx context.Context, js string) (string, error) {
	return "", types.ErrUnsupported
}

// Screenshot implements Session. Static pages are never rendered.
func (s *StaticSession) Screenshot(ctx context.Context, path string) error {
	return types.ErrUnsupported
}

// Close implements Session.
func (s *StaticSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.doc = nil
	if c, ok := s.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *StaticSession) ready(ctx context.Context) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc == nil {
		return fmt.Errorf("%w: no page loaded", types.ErrTimeout)
	}
	return nil
}

// staticElement is an Element backed by a goquery selection of one node.
type staticElement struct {
	sel *goquery.Selection
}

func (e *staticElement) Text() (string, error) {
	return collapse(e.sel.Text()), nil
}

func (e *staticElement) Attribute(name string) (types.Optional[string], error) {
	if v, ok := e.sel.Attr(name); ok {
		return types.Found(v), nil
	}
	return types.NotFound[string](), nil
}

func (e *staticElement) Find(selector string) (types.Optional[Element], error) {
	return first(selectAll(e.sel, selector)), nil
}

func (e *staticElement) FindAll(selector string) ([]Element, error) {
	return wrapSelection(selectAll(e.sel, selector)), nil
}

// selectAll evaluates a CSS or XPath selector below sel.
func selectAll(sel *goquery.Selection, selector string) *goquery.Selection {
	if !IsXPath(selector) {
		return sel.Find(selector)
	}

	var matched []*html.Node
	for _, node := range sel.Nodes {
		nodes, err := htmlquery.QueryAll(node, selector)
		if err != nil {
			return sel.FindNodes()
		}
		matched = append(matched, nodes...)
	}
	return sel.FindNodes(matched...)
}

func wrapSelection(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &staticElement{sel: s})
	})
	return elements
}

func first(sel *goquery.Selection) types.Optional[Element] {
	if sel.Length() == 0 {
		return types.NotFound[Element]()
	}
	return types.Found[Element](&staticElement{sel: sel.First()})
}

// resolve resolves href against base.
func resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == "" {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

// ResolveURL resolves href against the session's current page.
func ResolveURL(s Session, href string) string {
	abs, err := resolve(s.URL(), href)
	if err != nil {
		return href
	}
	return abs
}
