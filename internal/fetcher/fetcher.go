package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jpalmerr/feedboard/internal/htmltext"
	"github.com/jpalmerr/feedboard/internal/store"
)

// DefaultTimeout bounds a whole fetch when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Document is a fetched and normalized feed.
type Document struct {
	// Title is the source's own title, possibly empty.
	Title string

	// Entries are the normalized entries in source order.
	Entries []store.Entry

	// NotModified is set when the server answered a conditional request
	// with 304. Title and Entries are empty in that case.
	NotModified bool
}

// validator holds the cache validators from the last successful fetch.
type validator struct {
	etag         string
	lastModified string
}

// Fetcher retrieves and parses feed documents.
//
// Fetcher is safe for concurrent use. It remembers ETag and Last-Modified
// validators per URL for the lifetime of the process and sends them on the
// next request, so unchanged feeds cost a 304.
type Fetcher struct {
	client  *Client
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	validators map[string]validator
}

// New creates a [Fetcher] using client. A timeout of zero uses
// [DefaultTimeout].
func New(client *Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:     client,
		timeout:    timeout,
		now:        time.Now,
		validators: make(map[string]validator),
	}
}

// Fetch retrieves url and returns its normalized entries.
//
// Failures are returned as *[FetchError]. Fetch never retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	resp := f.client.Get(ctx, url, f.conditionalHeaders(url), f.timeout)
	if resp.Error != nil {
		return nil, classifyTransportError(resp.Error, url)
	}

	if resp.StatusCode == http.StatusNotModified {
		return &Document{NotModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ClassifyHTTPStatus(resp.StatusCode, resp.Header, url, f.now())
	}

	if resp.Truncated {
		return nil, &FetchError{
			Kind:  KindParseFailure,
			URL:   url,
			Cause: fmt.Errorf("document larger than %d bytes", MaxBodySize),
		}
	}
	if looksLikeHTML(resp.Header.Get("Content-Type"), resp.Body) {
		return nil, &FetchError{
			Kind:  KindParseFailure,
			URL:   url,
			Cause: errors.New("received an HTML page instead of a feed"),
		}
	}

	doc, err := Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindParseFailure, URL: url, Cause: err}
	}

	f.remember(url, resp.Header)
	return doc, nil
}

func (f *Fetcher) conditionalHeaders(url string) map[string]string {
	f.mu.Lock()
	v, ok := f.validators[url]
	f.mu.Unlock()
	if !ok {
		return nil
	}

	headers := make(map[string]string, 2)
	if v.etag != "" {
		headers["If-None-Match"] = v.etag
	}
	if v.lastModified != "" {
		headers["If-Modified-Since"] = v.lastModified
	}
	return headers
}

func (f *Fetcher) remember(url string, h http.Header) {
	v := validator{
		etag:         strings.TrimSpace(h.Get("ETag")),
		lastModified: strings.TrimSpace(h.Get("Last-Modified")),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if v.etag == "" && v.lastModified == "" {
		delete(f.validators, url)
		return
	}
	f.validators[url] = v
}

// Forget drops the cached validators for url so the next fetch is
// unconditional.
func (f *Fetcher) Forget(url string) {
	f.mu.Lock()
	delete(f.validators, url)
	f.mu.Unlock()
}

func classifyTransportError(err error, url string) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: url, Cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: url, Cause: err}
	}
	return &FetchError{Kind: KindNetwork, URL: url, Cause: err}
}

// looksLikeHTML reports whether a response is a web page rather than a feed.
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html") {
		// many servers label feeds text/html; trust the body if it is XML
		head := bytes.TrimSpace(body)
		return !bytes.HasPrefix(head, []byte("<?xml")) && !bytes.HasPrefix(head, []byte("<rss")) &&
			!bytes.HasPrefix(head, []byte("<feed"))
	}

	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// Parse parses an RSS, Atom or JSON feed document and normalizes its
// entries.
func Parse(body []byte) (*Document, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	doc := &Document{
		Title:   strings.TrimSpace(parsed.Title),
		Entries: make([]store.Entry, 0, len(parsed.Items)),
	}
	for i, item := range parsed.Items {
		if item == nil {
			continue
		}
		doc.Entries = append(doc.Entries, normalizeItem(item, i))
	}
	return doc, nil
}

func normalizeItem(item *gofeed.Item, index int) store.Entry {
	e := store.Entry{
		Title:     strings.TrimSpace(htmltext.ToPlainText(item.Title)),
		Link:      extractLink(item),
		Published: publishedAt(item),
		Author:    authorOf(item),
	}

	summary := item.Content
	if strings.TrimSpace(summary) == "" {
		summary = item.Description
	}
	e.Summary = htmltext.ToPlainText(summary)

	e.Key = entryKey(item, e, index)
	return e
}

// entryKey picks the entry's stable identity: GUID, then link, then title
// and publish time, then its position in the document.
func entryKey(item *gofeed.Item, e store.Entry, index int) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	if e.Link != "" {
		return e.Link
	}
	if e.Title != "" || !e.Published.IsZero() {
		stamp := ""
		if !e.Published.IsZero() {
			stamp = e.Published.UTC().Format(time.RFC3339)
		}
		return "title:" + e.Title + "|" + stamp
	}
	return fmt.Sprintf("position:%d", index)
}

// extractLink returns the best available URL from a feed entry. It prefers
// the explicit link, falling back to the GUID if it looks like an HTTP URL.
func extractLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	if guid := strings.TrimSpace(item.GUID); strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}

// authorOf returns the entry's first named author.
func authorOf(item *gofeed.Item) string {
	if item.Author != nil {
		if name := strings.TrimSpace(item.Author.Name); name != "" {
			return name
		}
	}
	for _, p := range item.Authors {
		if p == nil {
			continue
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			return name
		}
	}
	return ""
}

func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}
