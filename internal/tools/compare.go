package tools

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// maxCompare bounds the concurrent fetch batch.
const maxCompare = 5

func handleCompareDatasets(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()

	ids := strSliceParam(params, "dataset_ids")
	if len(ids) == 0 {
		return "", errors.New("dataset_ids must contain at least one id")
	}
	if len(ids) > maxCompare {
		return "", errors.Errorf("dataset_ids must contain at most %d ids", maxCompare)
	}

	// Fetch all datasets concurrently; an id that fails to resolve becomes
	// a per-entry placeholder instead of failing the whole comparison.
	entries := make([]any, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			ds, err := fetchDataset(ctx, deps.Client, id)
			if err != nil {
				entries[i] = map[string]any{"id": id, "error": "Not found"}
				return
			}
			formats, totalSize := resourceSummary(ds.Resources)
			sizeHuman := "Unknown"
			if totalSize > 0 {
				sizeHuman = humanSize(totalSize)
			}
			entries[i] = map[string]any{
				"id":            ds.ID,
				"name":          ds.Name,
				"title":         ds.Title,
				"organization":  ds.Organization,
				"license":       ds.License,
				"num_resources": len(ds.Resources),
				"num_tags":      len(ds.Tags),
				"formats":       formats,
				"total_size":    sizeHuman,
				"created":       ds.Created,
				"modified":      ds.Modified,
				"url":           ds.URL,
			}
		}(i, id)
	}
	wg.Wait()

	return respond(map[string]any{
		"count":    len(entries),
		"datasets": entries,
	}, started)
}
