package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

func newTestPermissionSync(t *testing.T, client *mockSourceClient) (*PermissionSyncService, *mockSearchIndex, *domain.Settings) {
	t.Helper()
	settings := testSettings(t)
	settings.EnablePermissions = true
	index := newMockSearchIndex()
	return NewPermissionSyncService(client, index, settings), index, settings
}

func seedSiteUsers(client *mockSourceClient) {
	client.responses["/sites/enterprise/_api/web/siteusers"] = []map[string]any{
		{"Title": "Alex Doe", "Id": float64(11)},
		{"Title": "Sam Lee", "Id": float64(12)},
	}
	client.responses["/sites/enterprise/_api/web/GetUserById(11)/groups"] = []map[string]any{
		{"Title": "HR Owners"},
		{"Title": "HR Members"},
	}
	client.responses["/sites/enterprise/_api/web/GetUserById(12)/groups"] = nil
}

func TestPermissionSyncService_DisabledByConfiguration(t *testing.T) {
	client := newMockSourceClient()
	settings := testSettings(t)
	s := NewPermissionSyncService(client, newMockSearchIndex(), settings)

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrPermissionSyncDisabled)
}

func TestPermissionSyncService_ReplacesGrants(t *testing.T) {
	client := newMockSourceClient()
	seedSiteUsers(client)

	s, index, _ := newTestPermissionSync(t, client)
	index.permissions["Stale User"] = []string{"Old Group"}

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, index.removed, "Stale User")
	assert.Equal(t, []string{"HR Owners", "HR Members"}, index.permissions["Alex Doe"])
	assert.Equal(t, []string{}, index.permissions["Sam Lee"])
	assert.NotContains(t, index.permissions, "Stale User")
}

func TestPermissionSyncService_AppliesUserMapping(t *testing.T) {
	client := newMockSourceClient()
	seedSiteUsers(client)

	s, index, settings := newTestPermissionSync(t, client)
	mapping := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(mapping, []byte("Alex Doe,alex.doe@example.com\n"), 0600))
	settings.UserMappingPath = mapping

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, index.permissions, "alex.doe@example.com")
	assert.NotContains(t, index.permissions, "Alex Doe")
}

func TestPermissionSyncService_MissingMappingFileFails(t *testing.T) {
	client := newMockSourceClient()
	s, _, settings := newTestPermissionSync(t, client)
	settings.UserMappingPath = "/nonexistent/users.csv"

	err := s.Run(context.Background())
	assert.Error(t, err)
}
