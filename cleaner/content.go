package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minReadableLength is the minimum TextContent length for readability
// output to be trusted; below it we assume the algorithm missed the main
// content and fall back to boilerplate stripping.
const minReadableLength = 50

// boilerplateSelector matches chrome that never belongs in item content.
const boilerplateSelector = "script, style, noscript, iframe, svg, header, footer, nav, aside, form, [role=banner], [role=navigation]"

// RenderContent converts a content element's HTML to markdown.
func RenderContent(html, sourceURL string) (string, error) {
	md, err := ToMarkdown(html, domainOf(sourceURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// RenderBody is the fallback path when the content selector produced
// nothing: run readability over the whole page body, and when that fails
// strip boilerplate from the raw body and convert what is left.
func RenderBody(bodyHTML, sourceURL string) (string, error) {
	parsed, err := nurl.Parse(sourceURL)
	if err == nil {
		article, rerr := readability.FromReader(strings.NewReader(bodyHTML), parsed)
		if rerr == nil && len(strings.TrimSpace(article.TextContent)) >= minReadableLength {
			return RenderContent(article.Content, sourceURL)
		}
		if rerr != nil {
			slog.Debug("readability failed on body, stripping boilerplate instead",
				"url", sourceURL, "error", rerr)
		}
	}
	return RenderContent(stripBoilerplate(bodyHTML), sourceURL)
}

// stripBoilerplate removes non-content elements from an HTML fragment.
// On any parse failure the original fragment is returned; the markdown
// converter strips the worst offenders anyway.
func stripBoilerplate(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find(boilerplateSelector).Remove()
	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		return html
	}
	return out
}

func domainOf(sourceURL string) string {
	u, err := nurl.Parse(sourceURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
