package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/core/ports/driving"
	"github.com/custodia-labs/spsync/internal/logger"
)

// PermissionSyncService mirrors the source's users and group
// memberships into the index's permission store. Stale permissions are
// removed wholesale before the current ones are written back, so a user
// dropped from a group loses access on the next run.
type PermissionSyncService struct {
	client   driven.SourceClient
	index    driven.SearchIndex
	settings *domain.Settings
}

var _ driving.PermissionSyncer = (*PermissionSyncService)(nil)

// NewPermissionSyncService wires the service to its adapters.
func NewPermissionSyncService(client driven.SourceClient, index driven.SearchIndex, settings *domain.Settings) *PermissionSyncService {
	return &PermissionSyncService{client: client, index: index, settings: settings}
}

// Run replaces the index-side permissions of every site user with the
// user's current group memberships.
func (s *PermissionSyncService) Run(ctx context.Context) error {
	if !s.settings.EnablePermissions {
		return domain.ErrPermissionSyncDisabled
	}

	mapping, err := s.loadUserMapping()
	if err != nil {
		return err
	}

	permissions := make(map[string][]string)
	for _, collection := range s.settings.SharePoint.SiteCollections {
		if err := s.collectPermissions(ctx, collection, permissions); err != nil {
			return err
		}
	}

	existing, err := s.index.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("list index permissions: %w", err)
	}
	for user := range existing {
		if err := s.index.RemovePermissions(ctx, user); err != nil {
			return fmt.Errorf("remove permissions of %s: %w", user, err)
		}
	}

	for user, groups := range permissions {
		target := user
		if mapped, ok := mapping[user]; ok {
			target = mapped
		}
		if err := s.index.AddPermissions(ctx, target, groups); err != nil {
			return fmt.Errorf("add permissions of %s: %w", target, err)
		}
	}
	logger.Info("Synchronised permissions for %d users", len(permissions))
	return nil
}

// collectPermissions gathers the group memberships of every user of one
// site collection into out, keyed by the user's display name.
func (s *PermissionSyncService) collectPermissions(ctx context.Context, collection string, out map[string][]string) error {
	base := "/sites/" + collection
	users, err := s.client.Fetch(ctx, base+"/_api/web/siteusers", "?$select=Title,Id", driven.HintPermissions)
	if err != nil {
		return fmt.Errorf("fetch site users of %s: %w", collection, err)
	}

	for _, user := range users {
		title := stringField(user, "Title")
		id := stringField(user, "Id")
		if title == "" || id == "" {
			continue
		}
		relURL := fmt.Sprintf("%s/_api/web/GetUserById(%s)/groups", base, id)
		groups, err := s.client.Fetch(ctx, relURL, "", driven.HintPermissions)
		if err != nil {
			logger.Warn("Failed to fetch groups of user %s: %v", title, err)
			continue
		}
		for _, group := range groups {
			if name := stringField(group, "Title"); name != "" {
				out[title] = appendUnique(out[title], name)
			}
		}
		if _, ok := out[title]; !ok {
			out[title] = []string{}
		}
	}
	return nil
}

// loadUserMapping reads the optional CSV mapping source user names to
// index user names, one "source,target" pair per row.
func (s *PermissionSyncService) loadUserMapping() (map[string]string, error) {
	if s.settings.UserMappingPath == "" {
		return nil, nil
	}
	f, err := os.Open(s.settings.UserMappingPath)
	if err != nil {
		return nil, fmt.Errorf("open user mapping: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse user mapping: %w", err)
	}
	mapping := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) >= 2 && row[0] != "" {
			mapping[row[0]] = row[1]
		}
	}
	return mapping, nil
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
