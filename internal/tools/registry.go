package tools

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"portalmcp/server/internal/middleware"
	"portalmcp/server/internal/observability"
	"portalmcp/server/internal/portal"
)

// ErrUnknownTool is returned by Dispatch for names outside the catalog.
// The MCP layer maps it to a method-not-found response.
var ErrUnknownTool = errors.New("unknown tool")

// errAuthRequired gates write tools; it renders as authRequiredMessage.
var errAuthRequired = errors.New("authentication required")

// toolTimeout is the maximum duration for a single tool execution.
const toolTimeout = 30 * time.Second

var toolDefinitions = []Tool{
	{
		Name:        "search",
		Description: "Search the data portal for datasets, organizations, groups, or resources. Use type=all to search datasets and organizations together.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Search terms"},
				"type": {
					Type:        "string",
					Description: "Category to search (default: all)",
					Enum:        []string{"datasets", "organizations", "groups", "resources", "all"},
				},
				"limit": {Type: "number", Description: "Maximum results to return (default: 10)"},
			},
			Required: []string{"query"},
		},
	},
	{
		Name:        "fetch",
		Description: "Fetch a single entity by id or name. Returns the normalized record as JSON.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id": {Type: "string", Description: "Entity id or URL name"},
				"type": {
					Type:        "string",
					Description: "Entity type (default: dataset)",
					Enum:        []string{"dataset", "organization", "group", "resource"},
				},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "get_dataset_stats",
		Description: "Summarize a dataset: resource count, distinct formats, total size, tag count.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id": {Type: "string", Description: "Dataset id or name"},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "preview_resource",
		Description: "Preview a resource's records as JSON. Reads the DataStore when available, falling back to the resource's CSV or JSON file.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"resource_id": {Type: "string", Description: "Resource id"},
				"limit":       {Type: "number", Description: "Rows to preview (default: 5, max: 100)"},
			},
			Required: []string{"resource_id"},
		},
	},
	{
		Name:        "preview_data_table",
		Description: "Preview a resource as a Markdown table. Reads the DataStore when available, falling back to the resource's CSV or JSON file.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"resource_id": {Type: "string", Description: "Resource id"},
				"limit":       {Type: "number", Description: "Rows to show (default: 10, max: 100)"},
			},
			Required: []string{"resource_id"},
		},
	},
	{
		Name:        "get_related_datasets",
		Description: "Find datasets related to a given one through its organization and/or shared tags.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id": {Type: "string", Description: "Source dataset id or name"},
				"relation_type": {
					Type:        "string",
					Description: "Relation to follow (default: both)",
					Enum:        []string{"organization", "tags", "both"},
				},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "compare_datasets",
		Description: "Compare up to 5 datasets side by side. Unresolvable ids are reported per entry instead of failing the comparison.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"dataset_ids": {
					Type:        "array",
					Description: "1 to 5 dataset ids or names",
					Items:       &Property{Type: "string"},
				},
			},
			Required: []string{"dataset_ids"},
		},
	},
	{
		Name:        "get_organization_details",
		Description: "Get an organization's full profile including members and recent datasets.",
		Annotations: AnnotateReadOnly,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id": {Type: "string", Description: "Organization id or name"},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "set_api_key",
		Description: "Store a portal API key for this session. Required before any create/update/membership tool.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"api_key": {Type: "string", Description: "Portal API key"},
				"api_url": {Type: "string", Description: "Portal base URL override (optional)"},
			},
			Required: []string{"api_key"},
		},
	},
	{
		Name:        "create_dataset",
		Description: "Create a new dataset. Requires set_api_key first.",
		Annotations: AnnotateCreate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"name":       {Type: "string", Description: "URL-safe dataset name (lowercase, hyphens)"},
				"title":      {Type: "string", Description: "Human-readable title"},
				"notes":      {Type: "string", Description: "Description"},
				"owner_org":  {Type: "string", Description: "Owning organization id or name"},
				"license_id": {Type: "string", Description: "License identifier (e.g. cc-by)"},
				"private":    {Type: "boolean", Description: "Keep the dataset private"},
				"tags": {
					Type:        "array",
					Description: "Tag names",
					Items:       &Property{Type: "string"},
				},
			},
			Required: []string{"name"},
		},
	},
	{
		Name:        "update_dataset",
		Description: "Patch fields on an existing dataset. Requires set_api_key first.",
		Annotations: AnnotateUpdate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id":         {Type: "string", Description: "Dataset id or name"},
				"title":      {Type: "string", Description: "New title"},
				"notes":      {Type: "string", Description: "New description"},
				"license_id": {Type: "string", Description: "New license identifier"},
				"private":    {Type: "boolean", Description: "Visibility"},
				"tags": {
					Type:        "array",
					Description: "Replacement tag names",
					Items:       &Property{Type: "string"},
				},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "create_resource",
		Description: "Attach a new resource (file or link) to a dataset. Requires set_api_key first.",
		Annotations: AnnotateCreate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"package_id":  {Type: "string", Description: "Dataset id or name"},
				"url":         {Type: "string", Description: "Resource URL"},
				"name":        {Type: "string", Description: "Resource name"},
				"format":      {Type: "string", Description: "Format (CSV, JSON, ...)"},
				"description": {Type: "string", Description: "Description"},
			},
			Required: []string{"package_id", "url"},
		},
	},
	{
		Name:        "create_organization",
		Description: "Create a new organization. Requires set_api_key first.",
		Annotations: AnnotateCreate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"name":        {Type: "string", Description: "URL-safe organization name"},
				"title":       {Type: "string", Description: "Human-readable title"},
				"description": {Type: "string", Description: "Description"},
			},
			Required: []string{"name"},
		},
	},
	{
		Name:        "update_organization",
		Description: "Patch fields on an existing organization. Requires set_api_key first.",
		Annotations: AnnotateUpdate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id":          {Type: "string", Description: "Organization id or name"},
				"title":       {Type: "string", Description: "New title"},
				"description": {Type: "string", Description: "New description"},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "add_user_to_organization",
		Description: "Add a user to an organization with a role. Requires set_api_key first.",
		Annotations: AnnotateUpdate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id":       {Type: "string", Description: "Organization id or name"},
				"username": {Type: "string", Description: "Portal username"},
				"role": {
					Type:        "string",
					Description: "Membership role (default: member)",
					Enum:        []string{"member", "editor", "admin"},
				},
			},
			Required: []string{"id", "username"},
		},
	},
	{
		Name:        "remove_user_from_organization",
		Description: "Remove a user from an organization. Requires set_api_key first.",
		Annotations: AnnotateUpdate,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"id":       {Type: "string", Description: "Organization id or name"},
				"username": {Type: "string", Description: "Portal username"},
			},
			Required: []string{"id", "username"},
		},
	},
}

var toolHandlers = map[string]Handler{
	"search":                        handleSearch,
	"fetch":                         handleFetch,
	"get_dataset_stats":             handleDatasetStats,
	"preview_resource":              handlePreviewResource,
	"preview_data_table":            handlePreviewDataTable,
	"get_related_datasets":          handleRelatedDatasets,
	"compare_datasets":              handleCompareDatasets,
	"get_organization_details":      handleOrganizationDetails,
	"set_api_key":                   handleSetAPIKey,
	"create_dataset":                handleCreateDataset,
	"update_dataset":                handleUpdateDataset,
	"create_resource":               handleCreateResource,
	"create_organization":           handleCreateOrganization,
	"update_organization":           handleUpdateOrganization,
	"add_user_to_organization":      handleAddMember,
	"remove_user_from_organization": handleRemoveMember,
}

// Definitions returns the tool catalog for tools/list.
func Definitions() []Tool {
	return toolDefinitions
}

// Dispatch validates and executes one tool call. Handler failures are
// converted to user-facing text here; no error escapes to the transport
// except ErrUnknownTool, which the MCP layer frames itself.
func Dispatch(ctx context.Context, deps *Deps, name string, params map[string]any) (*Result, error) {
	start := time.Now()

	handler, ok := toolHandlers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTool, "%s", name)
	}

	tool, _ := findTool(toolDefinitions, name)
	validated, err := ValidateParams(tool.InputSchema, params)
	if err != nil {
		return &Result{Text: "Error: " + err.Error(), IsError: true}, nil
	}

	// Bound external API time so a stalled portal cannot hang the session.
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	text, err := handler(ctx, deps, validated)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		msg := errorText(name, err)
		if ctx.Err() == context.DeadlineExceeded {
			msg = "Error: the portal did not respond within " + toolTimeout.String() + "."
		}
		observability.LogToolCall(middleware.GetRequestID(ctx), name, durationMs, "error", msg)
		observability.RecordToolCall(ctx, name, "error", durationMs)
		return &Result{Text: msg, IsError: true}, nil
	}

	observability.LogToolCall(middleware.GetRequestID(ctx), name, durationMs, "success", "")
	observability.RecordToolCall(ctx, name, "success", durationMs)
	return &Result{Text: text}, nil
}

// errorText converts a handler failure into the single descriptive line shown
// to the chat client. Network failures and HTTP errors read the same.
func errorText(tool string, err error) string {
	switch {
	case errors.Is(err, errAuthRequired):
		return authRequiredMessage
	case errors.Is(err, portal.ErrNotFound):
		return "Error: Not found"
	case errors.Is(err, portal.ErrMalformed):
		return "Error: the portal returned a malformed record (missing name)"
	case errors.Is(err, portal.ErrUnsupportedFormat):
		return "Error: " + err.Error() + ". Only CSV and JSON resources can be previewed."
	}

	var httpErr *portal.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == 404 {
		return "Error: Not found"
	}

	msg := "Error: " + err.Error()
	if hint := writeHint(tool, err); hint != "" {
		msg += " (" + hint + ")"
	}
	return msg
}

// writeHint appends guidance for known upstream error shapes on write tools.
func writeHint(tool string, err error) string {
	var apiErr *portal.APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	body := strings.ToLower(apiErr.Body)
	switch {
	case strings.Contains(body, "owner_org"):
		return "specify owner_org: search with type=organizations to find one"
	case strings.Contains(body, "authorization") || strings.Contains(body, "access denied"):
		return "your API key may lack permission for " + tool
	case strings.Contains(body, "already in use") || strings.Contains(body, "already exists"):
		return "pick a different name"
	default:
		return ""
	}
}
