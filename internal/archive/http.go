package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds each listing request.
const DefaultTimeout = 30 * time.Second

// DefaultMaxDepth bounds folder recursion.
const DefaultMaxDepth = 8

// DefaultRequestsPerSecond paces listing requests against one archive host.
const DefaultRequestsPerSecond = 5

// DefaultUserAgent is sent with listing requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; SessionIndexer/1.0)"

// listingMeta matches the "date size" column an autoindex page prints after each link.
var listingMeta = regexp.MustCompile(`(\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2})\s+(\d+|-)`)

// HTTPIndex lists files from HTML directory listings (nginx or Apache autoindex)
// served under BaseURL.
type HTTPIndex struct {
	BaseURL  string
	Client   *http.Client
	MaxDepth int
	// RequestsPerSecond caps listing fetches. Zero uses DefaultRequestsPerSecond;
	// a negative value disables pacing.
	RequestsPerSecond float64
}

// List crawls BaseURL and its sub-folders and returns every file link, sorted by path.
func (h HTTPIndex) List(ctx context.Context) ([]Entry, error) {
	base, err := url.Parse(h.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &Error{Source: h.BaseURL, Message: "invalid URL", Cause: err}
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	maxDepth := h.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	limit := rate.Inf
	switch {
	case h.RequestsPerSecond > 0:
		limit = rate.Limit(h.RequestsPerSecond)
	case h.RequestsPerSecond == 0:
		limit = rate.Limit(DefaultRequestsPerSecond)
	}

	c := crawler{
		client:   client,
		base:     base,
		maxDepth: maxDepth,
		limiter:  rate.NewLimiter(limit, 1),
		seen:     map[string]bool{},
	}
	if err := c.visit(ctx, base, 0); err != nil {
		return nil, err
	}
	slices.SortFunc(c.entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return c.entries, nil
}

type crawler struct {
	client   *http.Client
	base     *url.URL
	maxDepth int
	limiter  *rate.Limiter
	seen     map[string]bool
	entries  []Entry
}

func (c *crawler) visit(ctx context.Context, dir *url.URL, depth int) error {
	if c.seen[dir.Path] {
		return nil
	}
	c.seen[dir.Path] = true

	doc, err := c.fetch(ctx, dir)
	if err != nil {
		return err
	}

	var subdirs []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := dir.ResolveReference(ref)
		// Only descend; parent links and other hosts are ignored.
		if abs.Host != c.base.Host || !strings.HasPrefix(abs.Path, dir.Path) || abs.Path == dir.Path {
			return
		}
		if strings.HasSuffix(abs.Path, "/") {
			subdirs = append(subdirs, abs)
			return
		}
		c.entries = append(c.entries, c.entryFor(abs, trailingText(s)))
	})

	if depth+1 > c.maxDepth {
		return nil
	}
	for _, sub := range subdirs {
		if err := c.visit(ctx, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *crawler) fetch(ctx context.Context, dir *url.URL) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Source: dir.String(), Message: "listing cancelled", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dir.String(), nil)
	if err != nil {
		return nil, &Error{Source: dir.String(), Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Source: dir.String(), Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Source: dir.String(), Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &Error{Source: dir.String(), Message: "failed to parse HTML", Cause: err}
	}
	return doc, nil
}

func (c *crawler) entryFor(abs *url.URL, meta string) Entry {
	rel := strings.TrimPrefix(abs.Path, c.base.Path)
	e := Entry{
		Path:      "/" + rel,
		MediaType: MediaTypeFor(path.Base(rel)),
	}
	if m := listingMeta.FindStringSubmatch(meta); m != nil {
		if t, err := time.Parse("02-Jan-2006 15:04", m[1]); err == nil {
			t = t.UTC()
			e.ModifiedAt = &t
		}
		if n, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			e.SizeBytes = n
		}
	}
	return e
}

// trailingText returns the text after a link, or its table row when the listing is tabular.
func trailingText(s *goquery.Selection) string {
	if row := s.Closest("tr"); row.Length() > 0 {
		return row.Text()
	}
	if n := s.Nodes[0].NextSibling; n != nil {
		return n.Data
	}
	return ""
}
