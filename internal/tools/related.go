package tools

import (
	"context"
	"fmt"
	"time"

	"portalmcp/server/internal/portal"
)

// maxRelated caps the related-datasets result list.
const maxRelated = 10

// maxRelatedTags bounds how many of the source's tags are expanded into
// upstream queries.
const maxRelatedTags = 5

func handleRelatedDatasets(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	relation := strParamDefault(params, "relation_type", "both")

	source, err := fetchDataset(ctx, deps.Client, strParam(params, "id"))
	if err != nil {
		return "", err
	}

	// Candidates are collected organization-first, de-duplicated by id in
	// first-seen order, and never include the source dataset itself.
	seen := map[string]bool{source.ID: true}
	var results []map[string]any

	add := func(ds *portal.Dataset, via string) {
		if ds.ID == "" || seen[ds.ID] || len(results) >= maxRelated {
			return
		}
		seen[ds.ID] = true
		results = append(results, map[string]any{
			"id":           ds.ID,
			"name":         ds.Name,
			"title":        ds.Title,
			"organization": ds.Organization,
			"url":          ds.URL,
			"related_by":   via,
		})
	}

	if (relation == "organization" || relation == "both") && source.Organization != "" {
		candidates, err := searchByFilter(ctx, deps.Client,
			fmt.Sprintf("organization:%q", source.Organization), maxRelated+1)
		if err != nil {
			return "", err
		}
		for _, ds := range candidates {
			add(ds, "organization")
		}
	}

	if relation == "tags" || relation == "both" {
		tags := source.Tags
		if len(tags) > maxRelatedTags {
			tags = tags[:maxRelatedTags]
		}
		for _, tag := range tags {
			if len(results) >= maxRelated {
				break
			}
			candidates, err := searchByFilter(ctx, deps.Client,
				fmt.Sprintf("tags:%q", tag), maxRelated)
			if err != nil {
				return "", err
			}
			for _, ds := range candidates {
				add(ds, "tags")
			}
		}
	}

	if results == nil {
		results = []map[string]any{}
	}
	return respond(map[string]any{
		"source_id":     source.ID,
		"relation_type": relation,
		"count":         len(results),
		"results":       results,
	}, started)
}

// searchByFilter runs a filtered package_search and normalizes the rows.
func searchByFilter(ctx context.Context, client *portal.Client, fq string, rows int) ([]*portal.Dataset, error) {
	raw, err := client.Get(ctx, "package_search", map[string]any{
		"fq":   fq,
		"rows": rows,
	})
	if err != nil {
		return nil, err
	}

	page, err := portal.DecodeSearchPage(raw)
	if err != nil {
		return nil, err
	}

	datasets := make([]*portal.Dataset, 0, len(page.Results))
	for _, row := range page.Results {
		ds, err := portal.DecodeSearchDataset(row)
		if err != nil {
			continue
		}
		if ds.Name != "" {
			ds.URL = client.BaseURL() + "/dataset/" + ds.Name
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}
