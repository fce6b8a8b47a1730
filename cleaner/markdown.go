// Package cleaner renders deep-scraped HTML fragments into markdown
// suitable for storage: noise-stripped, readability-backed, table-aware.
package cleaner

import (
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var (
	convOnce sync.Once
	conv     *converter.Converter
)

// markdownConverter returns the shared goroutine-safe converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea and HTML comments.
//   - commonmark plugin: standard markdown rendering.
//   - table plugin with minimal cell padding: feed detail pages rarely
//     carry tables, but when they do the structure survives.
func markdownConverter() *converter.Converter {
	convOnce.Do(func() {
		conv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		)
	})
	return conv
}

// ToMarkdown converts an HTML fragment to markdown. The domain resolves
// relative links and image sources into absolute URLs so the output is
// self-contained.
func ToMarkdown(htmlContent, domain string) (string, error) {
	return markdownConverter().ConvertString(htmlContent, converter.WithDomain(domain))
}
