package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

func TestPermissionResolver_ResolvesMemberTitles(t *testing.T) {
	client := newMockSourceClient()
	client.responses["/sites/a/_api/web/roleassignments"] = []map[string]any{
		{"Member": map[string]any{"Title": "HR Owners"}},
		{"Member": map[string]any{"Title": "Alex Doe"}},
		{"RoleDefinitionBindings": []any{}},
	}

	r := NewPermissionResolver(client)
	principals := r.Resolve(context.Background(), domain.ObjectSites, PermissionScope{Site: "/sites/a"})
	assert.Equal(t, []string{"HR Owners", "Alex Doe"}, principals)
}

func TestPermissionResolver_ScopedEndpoints(t *testing.T) {
	scope := PermissionScope{Site: "/sites/a", ListID: "list-1", ItemID: "4"}

	assert.Equal(t, "/sites/a/_api/web/roleassignments",
		roleAssignmentsURL(domain.ObjectSites, scope))
	assert.Equal(t, "/sites/a/_api/web/lists(guid'list-1')/roleassignments",
		roleAssignmentsURL(domain.ObjectLists, scope))
	assert.Equal(t, "/sites/a/_api/web/lists(guid'list-1')/items(4)/roleassignments",
		roleAssignmentsURL(domain.ObjectListItems, scope))
}

func TestPermissionResolver_FailureYieldsEmptyList(t *testing.T) {
	client := newMockSourceClient()
	client.errors["/sites/a/_api/web/roleassignments"] = errors.New("timeout")

	r := NewPermissionResolver(client)
	principals := r.Resolve(context.Background(), domain.ObjectSites, PermissionScope{Site: "/sites/a"})
	assert.Equal(t, []string{}, principals)
}
