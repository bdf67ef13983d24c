package tools

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"portalmcp/server/internal/portal"
)

const defaultSearchLimit = 10

func handleSearch(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	query := strParam(params, "query")
	category := strParamDefault(params, "type", "all")
	limit := intParam(params, "limit", defaultSearchLimit)
	if limit < 0 {
		limit = 0
	}

	var results []any
	var err error

	switch category {
	case "datasets":
		results, err = searchDatasets(ctx, deps.Client, query, limit)
	case "organizations":
		results, err = searchOrganizations(ctx, deps.Client, query, limit)
	case "groups":
		results, err = searchGroups(ctx, deps.Client, query, limit)
	case "resources":
		results, err = searchResources(ctx, deps.Client, query, limit)
	default: // "all"
		// Categories keep their declared order (datasets before
		// organizations) and are never re-sorted by relevance.
		dsLimit, orgLimit := splitLimit(limit)
		var datasets, orgs []any
		datasets, err = searchDatasets(ctx, deps.Client, query, dsLimit)
		if err == nil {
			orgs, err = searchOrganizations(ctx, deps.Client, query, orgLimit)
		}
		results = append(datasets, orgs...)
	}
	if err != nil {
		return "", err
	}

	return respond(map[string]any{
		"query":   query,
		"type":    category,
		"count":   len(results),
		"results": results,
	}, started)
}

// splitLimit divides a type=all limit between the two searchable categories:
// ceiling for datasets, floor for organizations, so the totals never exceed
// the requested limit.
func splitLimit(limit int) (datasets, organizations int) {
	return (limit + 1) / 2, limit / 2
}

func searchDatasets(ctx context.Context, client *portal.Client, query string, limit int) ([]any, error) {
	if limit == 0 {
		return []any{}, nil
	}
	raw, err := client.Get(ctx, "package_search", map[string]any{
		"q":    query,
		"rows": limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search datasets")
	}

	page, err := portal.DecodeSearchPage(raw)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(page.Results))
	for _, row := range page.Results {
		ds, err := portal.DecodeSearchDataset(row)
		if err != nil {
			continue // rows without an id are dropped, not fatal
		}
		if ds.Name != "" {
			ds.URL = client.BaseURL() + "/dataset/" + ds.Name
		}
		results = append(results, ds)
	}
	return results, nil
}

func searchOrganizations(ctx context.Context, client *portal.Client, query string, limit int) ([]any, error) {
	if limit == 0 {
		return []any{}, nil
	}
	raw, err := client.Get(ctx, "organization_list", map[string]any{
		"q":          query,
		"all_fields": true,
		"limit":      limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search organizations")
	}

	rows, err := portal.DecodeRawList(raw)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(rows))
	for _, row := range rows {
		org, err := portal.DecodeSearchOrganization(row)
		if err != nil {
			continue
		}
		if org.Name != "" {
			org.URL = client.BaseURL() + "/organization/" + org.Name
		}
		results = append(results, org)
	}
	return results, nil
}

func searchGroups(ctx context.Context, client *portal.Client, query string, limit int) ([]any, error) {
	if limit == 0 {
		return []any{}, nil
	}
	raw, err := client.Get(ctx, "group_list", map[string]any{
		"all_fields": true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search groups")
	}

	rows, err := portal.DecodeRawList(raw)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := make([]any, 0, limit)
	for _, row := range rows {
		if len(results) >= limit {
			break
		}
		g, err := portal.DecodeGroup(row)
		if err != nil {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(g.Name), q) ||
			strings.Contains(strings.ToLower(g.Title), q) {
			g.URL = client.BaseURL() + "/group/" + g.Name
			results = append(results, g)
		}
	}
	return results, nil
}

// searchResources has no dedicated upstream action; it searches datasets and
// surfaces their resources that match the query by name, format, or
// description.
func searchResources(ctx context.Context, client *portal.Client, query string, limit int) ([]any, error) {
	if limit == 0 {
		return []any{}, nil
	}
	raw, err := client.Get(ctx, "package_search", map[string]any{
		"q":    query,
		"rows": limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search resources")
	}

	page, err := portal.DecodeSearchPage(raw)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := make([]any, 0, limit)
	for _, row := range page.Results {
		ds, err := portal.DecodeSearchDataset(row)
		if err != nil {
			continue
		}
		for i := range ds.Resources {
			if len(results) >= limit {
				return results, nil
			}
			r := ds.Resources[i]
			if q == "" || strings.Contains(strings.ToLower(r.Name), q) ||
				strings.Contains(strings.ToLower(r.Format), q) ||
				strings.Contains(strings.ToLower(r.Description), q) {
				results = append(results, r)
			}
		}
	}
	return results, nil
}
