package workplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&domain.Settings{
		Search: domain.SearchSettings{
			HostURL:  server.URL,
			APIKey:   "api-key",
			SourceID: "src-1",
		},
	})
}

func TestClient_IndexDocuments(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `[{"id":"doc-1","errors":[]},{"id":"doc-2","errors":["field too long"]}]`)
	}))

	docs := []domain.Document{
		{Type: "site", ID: "doc-1", Fields: map[string]any{"title": "A"}},
		{Type: "site", ID: "doc-2"},
	}
	results, err := client.IndexDocuments(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, "/api/ws/v1/sources/src-1/documents/bulk_create", gotPath)
	assert.Equal(t, "Bearer api-key", gotAuth)
	require.Len(t, gotBody, 2)
	assert.Equal(t, "doc-1", gotBody[0]["id"])

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
}

func TestClient_DeleteDocuments(t *testing.T) {
	var gotPath string
	var gotIDs []string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotIDs)
		fmt.Fprint(w, `{"deleted":2}`)
	}))

	require.NoError(t, client.DeleteDocuments(context.Background(), []string{"a", "b"}))
	assert.Equal(t, "/api/ws/v1/sources/src-1/documents/bulk_destroy", gotPath)
	assert.Equal(t, []string{"a", "b"}, gotIDs)
}

func TestClient_DeleteDocuments_EmptyIsNoop(t *testing.T) {
	called := false
	client := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	require.NoError(t, client.DeleteDocuments(context.Background(), nil))
	assert.False(t, called)
}

func TestClient_ListPermissions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[{"user":"alex","permissions":["HR Owners"]}]}`)
	}))

	perms, err := client.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"alex": {"HR Owners"}}, perms)
}

func TestClient_AddPermissions(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, client.AddPermissions(context.Background(), "alex", []string{"HR Owners"}))
	assert.Equal(t, "/api/ws/v1/sources/src-1/external_identities/alex/permissions", gotPath)
}

func TestClient_CreateContentSource(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ws/v1/sources", r.URL.Path)
		fmt.Fprint(w, `{"id":"new-source"}`)
	}))

	id, err := client.CreateContentSource(context.Background(), "SharePoint")
	require.NoError(t, err)
	assert.Equal(t, "new-source", id)
}

func TestClient_AuthFailureMapsToDomainError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ListPermissions(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}
