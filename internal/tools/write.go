package tools

import (
	"context"
	"time"

	"portalmcp/server/internal/portal"
)

// writeClient returns a portal client carrying the session credential, or
// errAuthRequired with no network side effects when none is set.
func writeClient(deps *Deps) (*portal.Client, error) {
	if deps.Session == nil {
		return nil, errAuthRequired
	}
	apiKey, apiURL, ok := deps.Session.Credentials()
	if !ok {
		return nil, errAuthRequired
	}
	return deps.Client.WithCredentials(apiKey, apiURL), nil
}

// copyParams builds an action body from the whitelisted argument names.
// Only present, non-nil values are forwarded.
func copyParams(params map[string]any, keys ...string) map[string]any {
	body := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := params[k]; ok && v != nil {
			body[k] = v
		}
	}
	return body
}

// tagObjects converts tag name strings into the portal's tag object shape.
func tagObjects(names []string) []map[string]any {
	tags := make([]map[string]any, 0, len(names))
	for _, n := range names {
		tags = append(tags, map[string]any{"name": n})
	}
	return tags
}

func handleCreateDataset(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "name", "title", "notes", "owner_org", "license_id", "private")
	if tags := strSliceParam(params, "tags"); len(tags) > 0 {
		body["tags"] = tagObjects(tags)
	}

	raw, err := client.Post(ctx, "package_create", body)
	if err != nil {
		return "", err
	}
	ds, err := portal.DecodeDataset(raw)
	if err != nil {
		return "", err
	}
	ds.URL = client.BaseURL() + "/dataset/" + ds.Name

	return respond(map[string]any{"created": true, "dataset": ds}, started)
}

func handleUpdateDataset(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "id", "title", "notes", "license_id", "private")
	if tags := strSliceParam(params, "tags"); len(tags) > 0 {
		body["tags"] = tagObjects(tags)
	}

	raw, err := client.Post(ctx, "package_patch", body)
	if err != nil {
		return "", err
	}
	ds, err := portal.DecodeDataset(raw)
	if err != nil {
		return "", err
	}
	ds.URL = client.BaseURL() + "/dataset/" + ds.Name

	return respond(map[string]any{"updated": true, "dataset": ds}, started)
}

func handleCreateResource(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "package_id", "url", "name", "format", "description")
	raw, err := client.Post(ctx, "resource_create", body)
	if err != nil {
		return "", err
	}
	res, err := portal.DecodeResource(raw)
	if err != nil {
		return "", err
	}

	return respond(map[string]any{"created": true, "resource": res}, started)
}

func handleCreateOrganization(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "name", "title", "description")
	raw, err := client.Post(ctx, "organization_create", body)
	if err != nil {
		return "", err
	}
	org, err := portal.DecodeOrganization(raw)
	if err != nil {
		return "", err
	}
	org.URL = client.BaseURL() + "/organization/" + org.Name

	return respond(map[string]any{"created": true, "organization": org}, started)
}

func handleUpdateOrganization(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "id", "title", "description")
	raw, err := client.Post(ctx, "organization_patch", body)
	if err != nil {
		return "", err
	}
	org, err := portal.DecodeOrganization(raw)
	if err != nil {
		return "", err
	}
	org.URL = client.BaseURL() + "/organization/" + org.Name

	return respond(map[string]any{"updated": true, "organization": org}, started)
}

func handleAddMember(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "id", "username")
	body["role"] = strParamDefault(params, "role", "member")

	if _, err := client.Post(ctx, "organization_member_create", body); err != nil {
		return "", err
	}

	return respond(map[string]any{
		"added":        true,
		"organization": strParam(params, "id"),
		"username":     strParam(params, "username"),
		"role":         body["role"],
	}, started)
}

func handleRemoveMember(ctx context.Context, deps *Deps, params map[string]any) (string, error) {
	started := time.Now()
	client, err := writeClient(deps)
	if err != nil {
		return "", err
	}

	body := copyParams(params, "id", "username")
	if _, err := client.Post(ctx, "organization_member_delete", body); err != nil {
		return "", err
	}

	return respond(map[string]any{
		"removed":      true,
		"organization": strParam(params, "id"),
		"username":     strParam(params, "username"),
	}, started)
}
