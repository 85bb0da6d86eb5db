// Standalone mock feed server for trying the reader against misbehaving
// hosts.
//
// Usage:
//
//	go run ./example/cmd/mockfeeds
//
// Then in another terminal:
//
//	go run ./cmd/feedboard -c example/config.yaml
package main

import (
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const addr = ":9999"

// mockFeed publishes a new item every period.
type mockFeed struct {
	name    string
	started time.Time
	period  time.Duration
}

func (f *mockFeed) count(now time.Time) int {
	return 1 + int(now.Sub(f.started)/f.period)
}

// render writes an RSS 2.0 document with the newest items first.
func (f *mockFeed) render(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0"><channel>`)
	fmt.Fprintf(&b, "<title>Mock %s</title><link>http://localhost%s/%s</link>", html.EscapeString(f.name), addr, f.name)
	for i := n; i >= 1 && i > n-20; i-- {
		pub := f.started.Add(time.Duration(i-1) * f.period)
		fmt.Fprintf(&b, "<item><guid>%s-%d</guid><title>%s item %d</title>", f.name, i, html.EscapeString(f.name), i)
		fmt.Fprintf(&b, "<link>http://localhost%s/%s/%d</link>", addr, f.name, i)
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>", pub.UTC().Format(time.RFC1123Z))
		fmt.Fprintf(&b, "<description>%s</description></item>",
			html.EscapeString(fmt.Sprintf("<p>Item %d of the %s feed.</p><p>Published %s.</p>", i, f.name, pub.Format(time.Kitchen))))
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

func main() {
	fmt.Printf("Mock feed server starting on %s\n", addr)
	fmt.Println("Feeds: /steady (new item every 30s), /slow (answers after 20s),")
	fmt.Println("       /limited (429 with Retry-After every other request), /flaky (random 500s)")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	now := time.Now()
	var (
		mu      sync.Mutex
		limited int
	)

	serve := func(name string, period time.Duration, before func(w http.ResponseWriter) bool) {
		feed := &mockFeed{name: name, started: now, period: period}
		http.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			if before != nil && !before(w) {
				return
			}

			n := feed.count(time.Now())
			etag := `"` + name + "-" + strconv.Itoa(n) + `"`
			if r.Header.Get("If-None-Match") == etag {
				w.WriteHeader(http.StatusNotModified)
				slog.Info("not modified", "feed", name, "items", n)
				return
			}

			w.Header().Set("Content-Type", "application/rss+xml")
			w.Header().Set("ETag", etag)
			_, _ = w.Write([]byte(feed.render(n)))
			slog.Info("served", "feed", name, "items", n)
		})
	}

	serve("steady", 30*time.Second, nil)
	serve("slow", time.Minute, func(http.ResponseWriter) bool {
		time.Sleep(20 * time.Second)
		return true
	})
	serve("limited", time.Minute, func(w http.ResponseWriter) bool {
		mu.Lock()
		limited++
		deny := limited%2 == 1
		mu.Unlock()
		if deny {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			slog.Info("rate limited", "feed", "limited")
		}
		return !deny
	})
	serve("flaky", 45*time.Second, func(w http.ResponseWriter) bool {
		if rand.Intn(3) == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			slog.Info("failed", "feed", "flaky")
			return false
		}
		return true
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
