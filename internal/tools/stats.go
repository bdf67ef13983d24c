package tools

import (
	"context"
	"sort"
	"strings"
	"time"

	"portalmcp/server/internal/portal"
)

func handleDatasetStats(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()

	ds, err := fetchDataset(ctx, deps.Client, strParam(params, "id"))
	if err != nil {
		return "", err
	}

	formats, totalSize := resourceSummary(ds.Resources)

	// A zero size sum means the portal did not declare sizes; report
	// Unknown rather than a misleading "0 B".
	sizeHuman := "Unknown"
	if totalSize > 0 {
		sizeHuman = humanSize(totalSize)
	}

	return respond(map[string]any{
		"id":               ds.ID,
		"name":             ds.Name,
		"title":            ds.Title,
		"organization":     ds.Organization,
		"license":          ds.License,
		"num_resources":    len(ds.Resources),
		"num_tags":         len(ds.Tags),
		"formats":          formats,
		"total_size_bytes": totalSize,
		"total_size":       sizeHuman,
		"created":          ds.Created,
		"modified":         ds.Modified,
		"url":              ds.URL,
	}, started)
}

// resourceSummary aggregates distinct formats (normalized to upper case)
// and sums declared resource sizes.
func resourceSummary(resources []portal.Resource) ([]string, int64) {
	seen := make(map[string]bool)
	var formats []string
	var totalSize int64

	for _, r := range resources {
		f := strings.ToUpper(strings.TrimSpace(r.Format))
		if f != "" && !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
		if r.Size > 0 {
			totalSize += r.Size
		}
	}
	sort.Strings(formats)
	if formats == nil {
		formats = []string{}
	}
	return formats, totalSize
}
