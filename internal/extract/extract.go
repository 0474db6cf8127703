package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"pipemail.dev/triage/internal/domain"
)

// Job URLs follow the GitLab path scheme, e.g.
// https://gitlab.example.com/group/project/-/jobs/12345
var jobURLPattern = regexp.MustCompile(`^https?://[\w.-]+.*/-/jobs/\d+`)

// HTMLContent concatenates every decoded text/html part of the message,
// walking the MIME tree depth first. Messages without an HTML part yield "".
func HTMLContent(msg *domain.NotificationMessage) string {
	var b strings.Builder
	collectHTML(msg.Payload, &b)
	return b.String()
}

func collectHTML(part domain.MessagePart, b *strings.Builder) {
	if part.MimeType == "text/html" && part.Body.Data != "" {
		if data, err := part.Body.Decode(); err == nil {
			b.Write(data)
		}
	}
	for _, p := range part.Parts {
		collectHTML(p, b)
	}
}

// PipelineURL returns the pipeline link of the notification body. Anchors
// whose href mentions "pipeline" are candidates; one whose visible text also
// mentions it wins outright, otherwise the first candidate in document order
// is used. Returns "" when the body has no candidate or is not parseable HTML.
func PipelineURL(htmlBody string) string {
	if htmlBody == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	first := ""
	for _, a := range collectAnchors(doc) {
		if a.href == "" || !strings.Contains(strings.ToLower(a.href), "pipeline") {
			continue
		}
		if strings.Contains(strings.ToLower(a.text), "pipeline") {
			return a.href
		}
		if first == "" {
			first = a.href
		}
	}
	return first
}

// JobReferences returns the job links of the notification body, labelled and
// in document order. Later anchors reusing a label update that label's URL
// without changing its position.
func JobReferences(htmlBody string) []domain.JobReference {
	if htmlBody == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	index := make(map[string]int)
	var refs []domain.JobReference
	for _, a := range collectAnchors(doc) {
		if a.href == "" || !jobURLPattern.MatchString(a.href) {
			continue
		}
		label := a.label()
		if i, ok := index[label]; ok {
			refs[i].URL = a.href
			continue
		}
		index[label] = len(refs)
		refs = append(refs, domain.JobReference{Label: label, URL: a.href})
	}
	return refs
}

// anchor is an <a> element with enough surrounding context to derive a
// human-readable label when the anchor itself has no text.
type anchor struct {
	href     string
	text     string
	prevText string
	parent   *html.Node
}

func (a anchor) label() string {
	if a.text != "" {
		return a.text
	}
	if a.prevText != "" {
		return a.prevText
	}
	if a.parent != nil {
		if t := nodeText(a.parent); t != "" {
			return t
		}
	}
	return a.href
}

// collectAnchors walks the document once, recording each anchor together
// with the nearest non-empty text preceding it. Anchor subtrees are not
// descended into; their rendered text is captured as a whole.
func collectAnchors(doc *html.Node) []anchor {
	var out []anchor
	lastText := ""

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			a := anchor{text: nodeText(n), prevText: lastText, parent: n.Parent}
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					a.href = strings.TrimSpace(attr.Val)
					break
				}
			}
			out = append(out, a)
			if a.text != "" {
				lastText = a.text
			}
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lastText = t
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// nodeText renders the concatenated text content of a node with runs of
// whitespace collapsed to single spaces.
func nodeText(n *html.Node) string {
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
