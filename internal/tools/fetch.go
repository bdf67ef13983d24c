package tools

import (
	"context"
	"time"

	"portalmcp/server/internal/portal"
)

func handleFetch(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	id := strParam(params, "id")
	entityType := strParamDefault(params, "type", "dataset")

	var entity any
	var err error

	switch entityType {
	case "organization":
		entity, err = fetchOrganization(ctx, deps.Client, id)
	case "group":
		entity, err = fetchGroup(ctx, deps.Client, id)
	case "resource":
		var raw []byte
		raw, err = deps.Client.Get(ctx, "resource_show", map[string]any{"id": id})
		if err == nil {
			entity, err = portal.DecodeResource(raw)
		}
	default: // "dataset"
		entity, err = fetchDataset(ctx, deps.Client, id)
	}
	if err != nil {
		return "", err
	}

	return respond(map[string]any{
		"type":   entityType,
		"entity": entity,
	}, started)
}

func fetchDataset(ctx context.Context, client *portal.Client, id string) (*portal.Dataset, error) {
	raw, err := client.Get(ctx, "package_show", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	ds, err := portal.DecodeDataset(raw)
	if err != nil {
		return nil, err
	}
	ds.URL = client.BaseURL() + "/dataset/" + ds.Name
	return ds, nil
}

func fetchOrganization(ctx context.Context, client *portal.Client, id string) (*portal.Organization, error) {
	raw, err := client.Get(ctx, "organization_show", map[string]any{
		"id":            id,
		"include_users": true,
	})
	if err != nil {
		return nil, err
	}
	org, err := portal.DecodeOrganization(raw)
	if err != nil {
		return nil, err
	}
	org.URL = client.BaseURL() + "/organization/" + org.Name
	return org, nil
}

func fetchGroup(ctx context.Context, client *portal.Client, id string) (*portal.Group, error) {
	raw, err := client.Get(ctx, "group_show", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	g, err := portal.DecodeGroup(raw)
	if err != nil {
		return nil, err
	}
	g.URL = client.BaseURL() + "/group/" + g.Name
	return g, nil
}
