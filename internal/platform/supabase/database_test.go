package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{ProjectURL: url, AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestBuildURLFilters(t *testing.T) {
	c := testClient(t, "https://proj.example.co")

	q := c.Database().From("messages").
		Select("*").
		Eq("channel_id", "42").
		Order("created_at").
		Limit(50)

	got := q.buildURL()
	want := "https://proj.example.co/rest/v1/messages?select=%2A&channel_id=eq.42&order=created_at.asc&limit=50"
	if got != want {
		t.Fatalf("unexpected URL:\n got %s\nwant %s", got, want)
	}
}

func TestBuildURLMultipleFiltersAndOffset(t *testing.T) {
	c := testClient(t, "https://proj.example.co")

	q := c.Database().From("todos").
		Select("id,title").
		Eq("status", "pending").
		Lt("due_date", "2026-01-01").
		Order("due_date", OrderDesc).
		Offset(10)

	got := q.buildURL()
	for _, part := range []string{
		"select=id%2Ctitle",
		"status=eq.pending",
		"due_date=lt.2026-01-01",
		"order=due_date.desc",
		"offset=10",
	} {
		if !strings.Contains(got, part) {
			t.Fatalf("URL missing %q: %s", part, got)
		}
	}
}

func TestExecuteSetsAuthHeaders(t *testing.T) {
	var gotAPIKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]map[string]string{{"id": "1"}})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	var rows []map[string]string
	if err := c.Database().From("profiles").Select("*").ExecuteInto(context.Background(), &rows); err != nil {
		t.Fatalf("ExecuteInto failed: %v", err)
	}
	if gotAPIKey != "anon-key" {
		t.Fatalf("apikey header: %q", gotAPIKey)
	}
	if gotAuth != "Bearer anon-key" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	if len(rows) != 1 || rows[0]["id"] != "1" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestWithTokenOverridesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Database().From("profiles").Select("*").WithToken("user-jwt").Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if gotAuth != "Bearer user-jwt" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
}

func TestExecuteDecodesPlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"42501","message":"permission denied for table notices"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Database().From("notices").Select("*").Execute(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermissionDenied(err) {
		t.Fatalf("expected permission-denied classification, got %v", err)
	}
}

func TestMissingRelationClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"42P01","message":"relation \"public.ledger_entries\" does not exist"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Database().From("ledger_entries").Select("*").Execute(context.Background())
	if !IsMissingRelation(err) {
		t.Fatalf("expected missing-relation classification, got %v", err)
	}
}

func TestZeroRowSingleClassifiedNotFound(t *testing.T) {
	// A Single() query matching zero rows answers 406 with PGRST116.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"The result contains 0 rows"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Database().From("channels").Select("*").Single().Execute(context.Background())
	if !IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestInsertSendsReturnRepresentation(t *testing.T) {
	var gotPrefer, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"7"}]`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	var rows []map[string]string
	err := c.Database().From("messages").Insert(map[string]string{"content": "hi"}).ExecuteInto(context.Background(), &rows)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("method: %s", gotMethod)
	}
	if gotPrefer != "return=representation" {
		t.Fatalf("prefer header: %q", gotPrefer)
	}
}
