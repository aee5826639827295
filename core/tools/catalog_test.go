package tools

import "testing"

type draftArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func testCatalog() *Catalog {
	return NewCatalog(
		New("create_gmail_draft", "draft an email", draftArgs{}, "email", "google"),
		New("get_weather", "look up the weather", nil, "weather"),
		New("list_events", "list calendar events", nil, "calendar", "google"),
	)
}

func TestCatalogReflectsParameterSchema(t *testing.T) {
	catalog := testCatalog()

	tool, ok := catalog.Lookup("create_gmail_draft")
	if !ok {
		t.Fatal("expected create_gmail_draft to be registered")
	}
	if tool.Parameters == nil {
		t.Fatal("expected a reflected parameter schema")
	}

	weather, ok := catalog.Lookup("get_weather")
	if !ok {
		t.Fatal("expected get_weather to be registered")
	}
	if weather.Parameters != nil {
		t.Fatal("expected no schema for a tool without arguments")
	}
}

func TestCatalogRegisterReplacesByName(t *testing.T) {
	catalog := testCatalog()
	catalog.Register(New("get_weather", "updated description", nil, "weather"))

	if got := len(catalog.All()); got != 3 {
		t.Fatalf("expected replacement, got %d tools", got)
	}
	tool, _ := catalog.Lookup("get_weather")
	if tool.Description != "updated description" {
		t.Fatalf("expected updated tool, got %q", tool.Description)
	}
}

func TestCatalogAllowedNamesByTag(t *testing.T) {
	catalog := testCatalog()

	names := catalog.AllowedNames("google")
	if len(names) != 2 || names[0] != "create_gmail_draft" || names[1] != "list_events" {
		t.Fatalf("unexpected allowed names %#v", names)
	}

	if names := catalog.AllowedNames(); len(names) != 3 {
		t.Fatalf("expected all tools with no tag filter, got %#v", names)
	}

	if names := catalog.AllowedNames("unknown"); len(names) != 0 {
		t.Fatalf("expected no tools for an unknown tag, got %#v", names)
	}
}

func TestCatalogTagsAreDistinct(t *testing.T) {
	tags := testCatalog().Tags()
	want := []string{"email", "google", "weather", "calendar"}
	if len(tags) != len(want) {
		t.Fatalf("unexpected tags %#v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("unexpected tag order %#v", tags)
		}
	}
}
