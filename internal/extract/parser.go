package extract

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Document is the result of parsing one page.
//
// Design decision: Parse returns text, links and title together rather
// than exposing separate passes, so a page is decoded and parsed once.
type Document struct {
	// Title is the trimmed text of the first <title> element.
	Title string

	// Text is the visible text of the page.
	Text string

	// Links holds every <a href> value in document order, trimmed but
	// otherwise as written. Empty values are kept.
	Links []string
}

// skippedElements hold no visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

// blockElements start and end a line.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "br": true, "caption": true, "dd": true, "details": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "summary": true, "table": true,
	"td": true, "th": true, "title": true, "tr": true, "ul": true,
}

// Parse decodes body using contentType and extracts title, text and links.
// Non-HTML text bodies yield their text and no links. Bodies that are not
// text at all fail with ErrUnsupportedContentType.
func Parse(body []byte, contentType string) (*Document, error) {
	kind, err := classify(contentType)
	if err != nil {
		return nil, &ExtractError{ContentType: contentType, Err: err}
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, &ExtractError{ContentType: contentType, Err: err}
	}

	if kind == kindPlain {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &ExtractError{ContentType: contentType, Err: err}
		}
		return &Document{
			Text:  cleanLines(strings.Split(string(data), "\n")),
			Links: make([]string, 0),
		}, nil
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, &ExtractError{ContentType: contentType, Err: err}
	}

	doc := goquery.NewDocumentFromNode(root)
	return &Document{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  visibleText(root),
		Links: links(doc),
	}, nil
}

// ExtractText returns the visible text of body.
func ExtractText(body []byte, contentType string) (string, error) {
	doc, err := Parse(body, contentType)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// ExtractLinks returns every <a href> value of body in document order.
func ExtractLinks(body []byte, contentType string) ([]string, error) {
	doc, err := Parse(body, contentType)
	if err != nil {
		return nil, err
	}
	return doc.Links, nil
}

type bodyKind int

const (
	kindHTML bodyKind = iota
	kindPlain
)

// classify maps a Content-Type to a body kind. A missing or unparsable
// header is treated as HTML, which is what servers mean most of the time.
func classify(contentType string) (bodyKind, error) {
	if strings.TrimSpace(contentType) == "" {
		return kindHTML, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kindHTML, nil
	}
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return kindHTML, nil
	case strings.HasPrefix(mediaType, "text/"):
		return kindPlain, nil
	default:
		return kindHTML, ErrUnsupportedContentType
	}
}

// links collects href values with goquery.
func links(doc *goquery.Document) []string {
	out := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out = append(out, strings.TrimSpace(href))
	})
	return out
}

// visibleText walks the tree and builds lines of visible text.
func visibleText(root *html.Node) string {
	var (
		lines []string
		cur   strings.Builder
	)
	breakLine := func() {
		lines = append(lines, cur.String())
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			breakLine()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			breakLine()
		}
	}
	walk(root)
	breakLine()

	var split []string
	for _, l := range lines {
		split = append(split, strings.Split(l, "\n")...)
	}
	return cleanLines(split)
}

// cleanLines collapses whitespace in each line, drops blank lines and
// returns valid NFC UTF-8.
func cleanLines(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if !utf8.ValidString(l) {
			l = strings.ToValidUTF8(l, "\uFFFD")
		}
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			continue
		}
		kept = append(kept, l)
	}
	return norm.NFC.String(strings.Join(kept, "\n"))
}
