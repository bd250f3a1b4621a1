// Package browser is the page capability the scraper drives: navigation,
// bounded waits, element lookup and clicks. Backends are a headless Chromium
// (go-rod) and a static HTML session (goquery) for pages that render without
// JavaScript.
package browser

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// Element is one node of a rendered page.
type Element interface {
	// Text returns the element's visible text with whitespace collapsed.
	Text() (string, error)

	// Attribute returns the named attribute, if present.
	Attribute(name string) (types.Optional[string], error)

	// Find returns the first descendant matching selector, if any.
	Find(selector string) (types.Optional[Element], error)

	// FindAll returns every descendant matching selector.
	FindAll(selector string) ([]Element, error)
}

// Session is a single page-fetching capability, owned by one scrape run.
// Selectors are CSS unless they start with "/", "./" or "(", in which case
// they are XPath.
type Session interface {
	// Navigate loads url into the session.
	Navigate(ctx context.Context, url string) error

	// URL returns the address of the current page.
	URL() string

	// WaitFor blocks until selector matches or timeout elapses. A timeout is
	// reported as an error wrapping types.ErrTimeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// FindElements returns all matches on the current page.
	FindElements(ctx context.Context, selector string) ([]Element, error)

	// FindElement returns the first match on the current page, if any.
	FindElement(ctx context.Context, selector string) (types.Optional[Element], error)

	// ScrollIntoView brings el into the viewport.
	ScrollIntoView(ctx context.Context, el Element) error

	// Click waits up to timeout for el to become interactable, then clicks
	// it. A control that never becomes interactable is reported as an error
	// wrapping types.ErrNotInteractable.
	Click(ctx context.Context, el Element, timeout time.Duration) error

	// Eval runs a JavaScript function expression such as
	// "() => document.title" on the page and returns its result as text.
	Eval(ctx context.Context, js string) (string, error)

	// Screenshot writes a PNG of the current page to path.
	Screenshot(ctx context.Context, path string) error

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Opener acquires a Session. The caller owns the returned session and must
// Close it.
type Opener func(ctx context.Context) (Session, error)

// IsXPath reports whether selector should be evaluated as XPath.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "(")
}

// ScrollIntoViewJS returns a function expression for Eval that centers the
// first match of selector in the viewport. It evaluates to false when
// nothing matches.
func ScrollIntoViewJS(selector string) string {
	quoted, _ := json.Marshal(strings.TrimSpace(selector))
	lookup := "document.querySelector(" + string(quoted) + ")"
	if IsXPath(selector) {
		lookup = "document.evaluate(" + string(quoted) +
			", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue"
	}
	return "() => { const el = " + lookup + "; if (!el) return false; " +
		"el.scrollIntoView({block: 'center', inline: 'center'}); return true }"
}

// collapse trims s and folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
