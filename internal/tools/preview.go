package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"portalmcp/server/internal/portal"
	"portalmcp/server/internal/render"
)

// maxDownload caps raw resource downloads for CSV/JSON fallback previews.
const maxDownload = 2 * 1024 * 1024

func handlePreviewResource(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	resourceID := strParam(params, "resource_id")
	limit := render.ClampLimit(intParam(params, "limit", 5), 5)

	meta, table, err := acquireTable(ctx, deps.Client, resourceID, limit)
	if err != nil {
		return "", err
	}

	data := map[string]any{
		"resource_id": resourceID,
		"source":      meta.Source,
		"fields":      table.Fields,
		"records":     table.Records,
		"rows_shown":  meta.RowsShown,
	}
	if meta.DownloadURL != "" {
		data["download_url"] = meta.DownloadURL
	}
	if meta.TotalCount >= 0 {
		data["total_records"] = meta.TotalCount
	}
	return respond(data, started)
}

func handlePreviewDataTable(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	resourceID := strParam(params, "resource_id")
	limit := render.ClampLimit(intParam(params, "limit", 10), 10)

	meta, table, err := acquireTable(ctx, deps.Client, resourceID, limit)
	if err != nil {
		return "", err
	}
	return render.Markdown(meta, table), nil
}

// acquireTable resolves preview records through the fixed fallback chain:
// DataStore query, then the resource's raw file parsed as JSON or CSV.
// The first source yielding usable records wins; every source clips to limit.
func acquireTable(ctx context.Context, client *portal.Client, resourceID string, limit int) (render.Meta, render.Table, error) {
	res, err := fetchResource(ctx, client, resourceID)
	if err != nil {
		return render.Meta{}, render.Table{}, err
	}

	if meta, table, ok := datastorePreview(ctx, client, resourceID, limit); ok {
		return meta, table, nil
	}

	if res.URL == "" {
		return render.Meta{}, render.Table{}, errors.Wrapf(portal.ErrUnsupportedFormat,
			"resource %s has no DataStore rows and no downloadable URL", resourceID)
	}

	body, contentType, err := client.FetchRaw(ctx, res.URL, maxDownload)
	if err != nil {
		return render.Meta{}, render.Table{}, err
	}

	switch {
	case isJSON(res.Format, res.MimeType, contentType, res.URL):
		table, total, err := jsonTable(body, limit)
		if err != nil {
			return render.Meta{}, render.Table{}, err
		}
		meta := render.Meta{
			Source:      "JSON File",
			DownloadURL: res.URL,
			TotalCount:  total,
			RowsShown:   len(table.Records),
		}
		return meta, table, nil

	case isCSV(res.Format, res.MimeType, contentType, res.URL):
		table, ok := render.ParseCSV(string(body), limit)
		if !ok {
			return render.Meta{}, render.Table{}, errors.New("resource file is empty")
		}
		meta := render.Meta{
			Source:      "CSV File",
			DownloadURL: res.URL,
			TotalCount:  -1,
			RowsShown:   len(table.Records),
		}
		return meta, table, nil

	default:
		format := res.Format
		if format == "" {
			format = contentType
		}
		return render.Meta{}, render.Table{}, errors.Wrapf(portal.ErrUnsupportedFormat, "%q", format)
	}
}

func fetchResource(ctx context.Context, client *portal.Client, id string) (*portal.Resource, error) {
	raw, err := client.Get(ctx, "resource_show", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return portal.DecodeResource(raw)
}

// datastoreResult is the structured tabular-query endpoint's result shape.
type datastoreResult struct {
	Fields []struct {
		ID string `json:"id"`
	} `json:"fields"`
	Records []map[string]any `json:"records"`
	Total   int              `json:"total"`
}

// datastorePreview attempts the DataStore source. Any failure or an empty
// record set falls through to the file-based sources.
func datastorePreview(ctx context.Context, client *portal.Client, resourceID string, limit int) (render.Meta, render.Table, bool) {
	raw, err := client.Get(ctx, "datastore_search", map[string]any{
		"resource_id": resourceID,
		"limit":       limit,
	})
	if err != nil {
		return render.Meta{}, render.Table{}, false
	}

	var result datastoreResult
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Records) == 0 {
		return render.Meta{}, render.Table{}, false
	}

	fields := make([]string, 0, len(result.Fields))
	for _, f := range result.Fields {
		fields = append(fields, f.ID)
	}

	records := result.Records
	if len(records) > limit {
		records = records[:limit]
	}

	meta := render.Meta{
		Source:     "DataStore",
		TotalCount: result.Total,
		RowsShown:  len(records),
	}
	return meta, render.Table{Fields: fields, Records: records}, true
}

// jsonTable builds a preview from a JSON payload: an array of objects yields
// the first limit rows, a single object yields one row.
func jsonTable(body []byte, limit int) (render.Table, int, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return render.Table{}, 0, errors.Wrap(err, "parse JSON resource")
	}

	var rows []map[string]any
	total := 0
	switch v := parsed.(type) {
	case []any:
		total = len(v)
		for _, item := range v {
			if len(rows) >= limit {
				break
			}
			if rec, ok := item.(map[string]any); ok {
				rows = append(rows, rec)
			}
		}
	case map[string]any:
		total = 1
		rows = []map[string]any{v}
	default:
		return render.Table{}, 0, errors.New("JSON resource is not an object or array of objects")
	}

	return render.Table{Fields: fieldUnion(rows), Records: rows}, total, nil
}

// fieldUnion collects every key across the rows, sorted for a deterministic
// column order.
func fieldUnion(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
		}
	}
	sort.Strings(fields)
	return fields
}

func isJSON(format, mime, contentType, url string) bool {
	f := strings.ToLower(format)
	return f == "json" || f == "geojson" ||
		strings.Contains(mime, "json") ||
		strings.Contains(contentType, "json") ||
		strings.HasSuffix(strings.ToLower(url), ".json")
}

func isCSV(format, mime, contentType, url string) bool {
	f := strings.ToLower(format)
	return f == "csv" ||
		strings.Contains(mime, "csv") ||
		strings.Contains(contentType, "csv") ||
		strings.HasSuffix(strings.ToLower(url), ".csv")
}
