package tools

import (
	"context"
	"net/http"
	"testing"
)

func TestHandleFetchDataset(t *testing.T) {
	deps, srv := newTestDeps(t, func(action string, r *http.Request) string {
		if action != "package_show" {
			t.Errorf("unexpected action %s", action)
		}
		if r.URL.Query().Get("id") != "water-quality" {
			t.Errorf("id = %s", r.URL.Query().Get("id"))
		}
		return ok(`{"id": "d1", "name": "water-quality", "title": "Water Quality"}`)
	})

	text, err := handleFetch(context.Background(), deps, map[string]any{"id": "water-quality"})
	if err != nil {
		t.Fatalf("handleFetch: %v", err)
	}

	data := decodeEnvelope(t, text)
	if data["type"] != "dataset" {
		t.Errorf("type = %v", data["type"])
	}
	entity := data["entity"].(map[string]any)
	if entity["url"] != srv.URL+"/dataset/water-quality" {
		t.Errorf("url = %v", entity["url"])
	}
}

func TestHandleFetchOrganizationIncludesUsers(t *testing.T) {
	deps, _ := newTestDeps(t, func(action string, r *http.Request) string {
		if action != "organization_show" {
			t.Errorf("unexpected action %s", action)
		}
		if r.URL.Query().Get("include_users") != "true" {
			t.Error("include_users not requested")
		}
		return ok(`{"id": "o1", "name": "env-dept", "users": [{"name": "alice", "capacity": "admin"}]}`)
	})

	text, err := handleFetch(context.Background(), deps, map[string]any{
		"id": "env-dept", "type": "organization",
	})
	if err != nil {
		t.Fatalf("handleFetch: %v", err)
	}
	data := decodeEnvelope(t, text)
	entity := data["entity"].(map[string]any)
	members := entity["members"].([]any)
	if len(members) != 1 {
		t.Errorf("members = %v", members)
	}
}

func TestHandleFetchGroupAndResource(t *testing.T) {
	deps, _ := newTestDeps(t, func(action string, r *http.Request) string {
		switch action {
		case "group_show":
			return ok(`{"id": "g1", "name": "environment"}`)
		case "resource_show":
			return ok(`{"id": "r1", "name": "readings", "format": "CSV"}`)
		default:
			t.Errorf("unexpected action %s", action)
			return notFound()
		}
	})

	text, err := handleFetch(context.Background(), deps, map[string]any{"id": "g1", "type": "group"})
	if err != nil {
		t.Fatalf("fetch group: %v", err)
	}
	if decodeEnvelope(t, text)["type"] != "group" {
		t.Error("wrong type for group fetch")
	}

	text, err = handleFetch(context.Background(), deps, map[string]any{"id": "r1", "type": "resource"})
	if err != nil {
		t.Fatalf("fetch resource: %v", err)
	}
	entity := decodeEnvelope(t, text)["entity"].(map[string]any)
	if entity["format"] != "CSV" {
		t.Errorf("format = %v", entity["format"])
	}
}

func TestHandleOrganizationDetails(t *testing.T) {
	deps, _ := newTestDeps(t, func(action string, r *http.Request) string {
		switch action {
		case "organization_show":
			return ok(`{"id": "o1", "name": "env-dept", "title": "Environment Dept", "package_count": 12}`)
		case "package_search":
			return ok(`{"count": 2, "results": [
				{"id": "d1", "name": "newest"},
				{"id": "d2", "name": "older"}
			]}`)
		default:
			t.Errorf("unexpected action %s", action)
			return notFound()
		}
	})

	text, err := handleOrganizationDetails(context.Background(), deps, map[string]any{"id": "env-dept"})
	if err != nil {
		t.Fatalf("handleOrganizationDetails: %v", err)
	}
	data := decodeEnvelope(t, text)
	recent := data["recent_datasets"].([]any)
	if len(recent) != 2 {
		t.Errorf("recent_datasets = %d", len(recent))
	}
}

func TestHandleOrganizationDetailsSearchFailureDegrades(t *testing.T) {
	deps, _ := newTestDeps(t, func(action string, r *http.Request) string {
		switch action {
		case "organization_show":
			return ok(`{"id": "o1", "name": "env-dept"}`)
		default:
			return notFound()
		}
	})

	text, err := handleOrganizationDetails(context.Background(), deps, map[string]any{"id": "env-dept"})
	if err != nil {
		t.Fatalf("handleOrganizationDetails: %v", err)
	}
	data := decodeEnvelope(t, text)
	recent := data["recent_datasets"].([]any)
	if len(recent) != 0 {
		t.Errorf("recent_datasets = %v, want empty on search failure", recent)
	}
}
