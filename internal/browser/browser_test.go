package browser

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const page1 = `<html><body>
<ul class="results-base">
  <li class="product-base"><a href="/p/1"><h3 class="product-brand"> Acme </h3><h4 class="product-product">Tote   Bag</h4></a></li>
  <li class="product-base"><a href="/p/2"><h3 class="product-brand">Zeta</h3></a></li>
</ul>
<ul class="pagination"><li class="pagination-next"><a href="/bags?p=2">Next</a></li></ul>
</body></html>`

const page2 = `<html><body>
<ul class="results-base"><li class="product-base"><h3 class="product-brand">Nova</h3></li></ul>
<ul class="pagination"><li class="pagination-next pagination-disabled">Next</li></ul>
</body></html>`

func newMapSession(t *testing.T) *StaticSession {
	t.Helper()
	src := MapSource{
		"https://shop.test/bags":     page1,
		"https://shop.test/bags?p=2": page2,
	}
	s := NewStaticSession(src, testLogger)
	require.NoError(t, s.Navigate(context.Background(), "https://shop.test/bags"))
	return s
}

func TestIsXPath(t *testing.T) {
	assert.True(t, IsXPath("//li"))
	assert.True(t, IsXPath("./h3"))
	assert.True(t, IsXPath("(//a)[1]"))
	assert.False(t, IsXPath("li.product-base"))
	assert.False(t, IsXPath("a[href]"))
}

func TestStaticFindElements(t *testing.T) {
	s := newMapSession(t)
	ctx := context.Background()

	tiles, err := s.FindElements(ctx, "li.product-base")
	require.NoError(t, err)
	require.Len(t, tiles, 2)

	brand, err := tiles[0].Find("h3.product-brand")
	require.NoError(t, err)
	el, ok := brand.Get()
	require.True(t, ok)
	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, "Acme", text)

	name, err := tiles[0].Find("h4.product-product")
	require.NoError(t, err)
	el, _ = name.Get()
	text, _ = el.Text()
	assert.Equal(t, "Tote Bag", text, "whitespace should be collapsed")

	missing, err := tiles[1].Find("h4.product-product")
	require.NoError(t, err)
	assert.False(t, missing.IsFound())
}

func TestStaticXPath(t *testing.T) {
	s := newMapSession(t)
	ctx := context.Background()

	tiles, err := s.FindElements(ctx, "//li[contains(@class,'product-base')]")
	require.NoError(t, err)
	require.Len(t, tiles, 2)

	link, err := tiles[1].Find(".//a")
	require.NoError(t, err)
	a, ok := link.Get()
	require.True(t, ok)
	href, err := a.Attribute("href")
	require.NoError(t, err)
	assert.Equal(t, "/p/2", href.Or(""))
}

func TestStaticWaitFor(t *testing.T) {
	s := newMapSession(t)
	ctx := context.Background()

	assert.NoError(t, s.WaitFor(ctx, "ul.results-base", time.Second))

	err := s.WaitFor(ctx, "div.never-there", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTimeout)
}

func TestStaticClickFollowsLink(t *testing.T) {
	s := newMapSession(t)
	ctx := context.Background()

	next, err := s.FindElement(ctx, "li.pagination-next")
	require.NoError(t, err)
	el, ok := next.Get()
	require.True(t, ok)

	require.NoError(t, s.Click(ctx, el, time.Second))
	assert.Equal(t, "https://shop.test/bags?p=2", s.URL())

	tiles, err := s.FindElements(ctx, "li.product-base")
	require.NoError(t, err)
	assert.Len(t, tiles, 1)

	// The disabled control on the last page carries no link.
	next, err = s.FindElement(ctx, "li.pagination-next")
	require.NoError(t, err)
	el, _ = next.Get()
	err = s.Click(ctx, el, time.Second)
	assert.ErrorIs(t, err, types.ErrNotInteractable)
}

func TestStaticClosed(t *testing.T) {
	s := newMapSession(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.FindElements(context.Background(), "li")
	assert.ErrorIs(t, err, types.ErrSessionClosed)
	assert.ErrorIs(t, s.Navigate(context.Background(), "https://shop.test/bags"), types.ErrSessionClosed)
}

func TestStaticUnsupported(t *testing.T) {
	s := newMapSession(t)
	_, err := s.Eval(context.Background(), "1+1")
	assert.ErrorIs(t, err, types.ErrUnsupported)
	assert.ErrorIs(t, s.Screenshot(context.Background(), "x.png"), types.ErrUnsupported)
}

func TestScrollIntoViewJS(t *testing.T) {
	css := ScrollIntoViewJS("li.pagination-next")
	assert.Contains(t, css, `document.querySelector("li.pagination-next")`)
	assert.True(t, strings.HasPrefix(css, "() => {"))

	xpath := ScrollIntoViewJS(`//li[@class="pagination-next"]`)
	assert.Contains(t, xpath, `document.evaluate("//li[@class=\"pagination-next\"]"`)
	assert.Contains(t, xpath, "FIRST_ORDERED_NODE_TYPE")
}

func TestResolveURL(t *testing.T) {
	s := newMapSession(t)
	assert.Equal(t, "https://shop.test/p/1", ResolveURL(s, "/p/1"))
	assert.Equal(t, "https://cdn.test/x", ResolveURL(s, "https://cdn.test/x"))
	assert.Equal(t, "https://shop.test/bags/tote", ResolveURL(s, "bags/tote"))
}

func TestHTTPSourceBrotli(t *testing.T) {
	var gotUA, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")

		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(page1))
		_ = bw.Close()

		w.Header().Set("Content-Encoding", "br")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPSourceOptions{
		Timeout:    5 * time.Second,
		UserAgents: []string{"test-agent"},
	}, testLogger)
	require.NoError(t, err)

	s := NewStaticSession(src, testLogger)
	defer s.Close()

	require.NoError(t, s.Navigate(context.Background(), srv.URL+"/bags"))
	assert.Equal(t, "test-agent", gotUA)
	assert.Contains(t, gotEncoding, "br")

	tiles, err := s.FindElements(context.Background(), "li.product-base")
	require.NoError(t, err)
	assert.Len(t, tiles, 2)
}

func TestHTTPSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPSourceOptions{Timeout: 5 * time.Second}, testLogger)
	require.NoError(t, err)

	_, _, err = src.Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNewOpener(t *testing.T) {
	_, err := NewOpener(Options{Backend: "carrier-pigeon"}, testLogger)
	assert.Error(t, err)

	open, err := NewOpener(Options{Backend: BackendHTTP, NavigateTimeout: time.Second}, testLogger)
	require.NoError(t, err)
	s, err := open(context.Background())
	require.NoError(t, err)
	_, ok := s.(*StaticSession)
	assert.True(t, ok)
	assert.NoError(t, s.Close())
}
