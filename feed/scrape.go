package feed

import (
	"log/slog"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/models"
	"github.com/use-agent/skimmer/schema"
)

// scrapeItems applies the schema to every visible container currently in
// the DOM and returns the items in DOM order. It has no memory: calling
// it twice on an unchanged page returns the same items. Per-field failures
// null the field; per-container failures drop the container; neither
// aborts the pass.
func scrapeItems(page browser.Page, sch schema.Schema, containerSelector string) []models.Item {
	containers, err := page.QueryAll(containerSelector)
	if err != nil {
		slog.Warn("container query failed", "selector", containerSelector, "error", err)
		return nil
	}

	items := make([]models.Item, 0, len(containers))
	for i, container := range containers {
		visible, err := container.Visible()
		if err != nil {
			slog.Debug("visibility check failed, skipping container", "position", i, "error", err)
			continue
		}
		if !visible {
			continue
		}

		item := make(models.Item, len(sch))
		for name, spec := range sch {
			// The container field only identifies the repeating
			// element; it is not re-extracted as a value.
			if spec.Container {
				continue
			}
			value, err := extractField(container, spec)
			if err != nil {
				slog.Debug("field extraction failed",
					"field", name, "position", i, "error", err)
				value = nil
			}
			item[name] = value
		}
		items = append(items, item)
	}
	return items
}

// sampleURLs extracts just the URL field from the trailing sample of
// containers. Turbo mode uses it to probe for unseen content without
// paying full extraction cost.
func sampleURLs(page browser.Page, sch schema.Schema, containerSelector, urlField string, sampleSize int) []string {
	containers, err := page.QueryAll(containerSelector)
	if err != nil {
		return nil
	}
	if len(containers) > sampleSize {
		containers = containers[len(containers)-sampleSize:]
	}

	spec, ok := sch[urlField]
	if !ok {
		return nil
	}

	urls := make([]string, 0, len(containers))
	for _, container := range containers {
		value, err := extractField(container, spec)
		if err != nil || value == nil {
			continue
		}
		if url, ok := value.(string); ok && url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}
