package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/logger"
)

// roleAssignmentsExpand pulls member and role definition details in one call.
const roleAssignmentsExpand = "?$expand=Member/users,RoleDefinitionBindings"

// PermissionScope locates the object whose principals are resolved.
type PermissionScope struct {
	// Site is the server-relative site URL. Required for every scope.
	Site string

	// ListID scopes the lookup to a list. Required for list and item scopes.
	ListID string

	// ItemID scopes the lookup to a single list or drive item.
	ItemID string
}

// PermissionResolver fetches the principals allowed to see an object.
// Resolution is direct: one role-assignments call against the object's
// own endpoint returns the effective assignments, inherited or unique.
type PermissionResolver struct {
	client driven.SourceClient
}

// NewPermissionResolver creates a resolver over the source client.
func NewPermissionResolver(client driven.SourceClient) *PermissionResolver {
	return &PermissionResolver{client: client}
}

// Resolve returns the principal display names granted access to the
// object. A failed or empty role-assignment response yields an empty
// list, never an error: the document simply becomes inaccessible.
func (r *PermissionResolver) Resolve(ctx context.Context, t domain.ObjectType, scope PermissionScope) []string {
	relURL := roleAssignmentsURL(t, scope)
	rows, err := r.client.Fetch(ctx, relURL, roleAssignmentsExpand, driven.HintPermissions)
	if err != nil {
		logger.Warn("Failed to fetch role assignments for %s at %s: %v", t, scope.Site, err)
		return []string{}
	}

	principals := make([]string, 0, len(rows))
	for _, row := range rows {
		member, ok := row["Member"].(map[string]any)
		if !ok {
			continue
		}
		if title, ok := member["Title"].(string); ok && title != "" {
			principals = append(principals, title)
		}
	}
	return principals
}

// roleAssignmentsURL builds the role-assignments endpoint for the scope.
func roleAssignmentsURL(t domain.ObjectType, scope PermissionScope) string {
	base := strings.TrimSuffix(scope.Site, "/")
	switch t {
	case domain.ObjectSites:
		return base + "/_api/web/roleassignments"
	case domain.ObjectLists:
		return fmt.Sprintf("%s/_api/web/lists(guid'%s')/roleassignments", base, scope.ListID)
	default:
		return fmt.Sprintf("%s/_api/web/lists(guid'%s')/items(%s)/roleassignments", base, scope.ListID, scope.ItemID)
	}
}
