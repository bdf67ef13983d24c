package tools

import (
	"context"
	"fmt"
	"time"
)

func handleOrganizationDetails(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()

	org, err := fetchOrganization(ctx, deps.Client, strParam(params, "id"))
	if err != nil {
		return "", err
	}

	// A small sample of the organization's newest datasets rounds out the
	// profile; a failure here degrades to an empty list, not an error.
	recent, err := searchByFilter(ctx, deps.Client,
		fmt.Sprintf("organization:%q", org.Name), 5)
	if err != nil {
		recent = nil
	}

	recentOut := make([]map[string]any, 0, len(recent))
	for _, ds := range recent {
		recentOut = append(recentOut, map[string]any{
			"id":    ds.ID,
			"name":  ds.Name,
			"title": ds.Title,
			"url":   ds.URL,
		})
	}

	return respond(map[string]any{
		"organization":    org,
		"recent_datasets": recentOut,
	}, started)
}
