package joblog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"pipemail.dev/triage/internal/classify"
	"pipemail.dev/triage/internal/domain"
)

const (
	probeTimeout = 5 * time.Second
	fetchTimeout = 20 * time.Second
)

type selector struct {
	tag   string
	class string
}

// Transcript containers tried in order on a pipeline page.
var transcriptSelectors = []selector{
	{tag: "div", class: "job-log"},
	{tag: "pre", class: "build-log"},
	{tag: "div", class: "build-trace"},
}

// PageLog is what page scraping could recover from a pipeline page.
type PageLog struct {
	Transcript string
	ErrorLines []string
	JobLinks   []domain.JobReference
}

// Scraper recovers job logs from pipeline web pages when the API path is
// unavailable.
type Scraper struct {
	probe *http.Client
	fetch *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		probe: &http.Client{Timeout: probeTimeout},
		fetch: &http.Client{Timeout: fetchTimeout},
	}
}

// CheckAccess probes rawURL with a HEAD request. The returned reason is
// meant for the acquisition record and distinguishes a missing link, a bad
// link, a timeout, an unreachable host and an error status.
func (s *Scraper) CheckAccess(ctx context.Context, rawURL string) (bool, string) {
	if rawURL == "" {
		return false, "notification contains no pipeline link"
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false, fmt.Sprintf("pipeline link %q is not a valid url", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, fmt.Sprintf("pipeline link %q is not a valid url", rawURL)
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, "pipeline page did not respond before the probe timeout"
		}
		return false, "pipeline page could not be reached"
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("pipeline page returned status %d", resp.StatusCode)
	}
	return true, ""
}

// Scrape fetches the pipeline page and pulls out whatever log content it
// carries. When no transcript container is present, elements mentioning a
// failure keyword are collected as error lines and the transcript stays
// empty. All caps from the acquisition contract apply.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*PageLog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.fetch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pipeline page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("pipeline page returned status %d", resp.StatusCode)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse pipeline page: %w", err)
	}

	page := &PageLog{}
	if container := findByClass(doc, transcriptSelectors); container != nil {
		transcript := rawText(container)
		page.Transcript = capText(transcript, domain.MaxLogChars)
		page.ErrorLines = classify.ErrorLines(transcript)
	} else {
		page.ErrorLines = keywordTexts(doc)
	}
	page.JobLinks = pageJobLinks(doc)
	return page, nil
}

// findByClass returns the first element matching any selector, trying
// selectors in their given order across the whole document.
func findByClass(doc *html.Node, selectors []selector) *html.Node {
	for _, sel := range selectors {
		if n := findElement(doc, sel); n != nil {
			return n
		}
	}
	return nil
}

func findElement(n *html.Node, sel selector) *html.Node {
	if n.Type == html.ElementNode && n.Data == sel.tag && hasClass(n, sel.class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, sel); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, token := range strings.Fields(attr.Val) {
			if token == class {
				return true
			}
		}
	}
	return false
}

// keywordTexts collects the text of div, span and p elements that mention a
// failure keyword, capped at the error line limit.
func keywordTexts(doc *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= domain.MaxErrorLines {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "div" || n.Data == "span" || n.Data == "p") {
			if t := elementText(n); t != "" && classify.ContainsFailureKeyword(t) {
				out = append(out, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// pageJobLinks collects anchors that look like job or build links belonging
// to a pipeline, capped at the job link limit.
func pageJobLinks(doc *html.Node) []domain.JobReference {
	var out []domain.JobReference
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= domain.MaxJobLinks {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			href := ""
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
					break
				}
			}
			lower := strings.ToLower(href)
			if href != "" && strings.Contains(lower, "pipeline") &&
				(strings.Contains(lower, "job") || strings.Contains(lower, "build")) {
				label := elementText(n)
				if label == "" {
					label = href
				}
				out = append(out, domain.JobReference{Label: label, URL: href})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// rawText concatenates the text nodes of a subtree unchanged, so the line
// structure of a log transcript survives.
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// elementText renders the text content of a node with whitespace runs
// collapsed.
func elementText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// capText truncates s to at most max runes.
func capText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
