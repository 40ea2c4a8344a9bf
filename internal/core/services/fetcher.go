package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/logger"
)

// titleSanitiser strips characters that are not valid in synthesised
// list URLs, matching how SharePoint names list folders.
var titleSanitiser = regexp.MustCompile(`[^ \w+]`)

// ListMeta describes one list or library discovered during the lists
// phase, keyed externally by its id.
type ListMeta struct {
	SiteURL      string
	Title        string
	LastModified time.Time
}

// HierarchyFetcher walks sites, lists, list items and drive items of
// one site collection for one window, emitting normalised documents and
// recording every observed id into the collection inventory.
type HierarchyFetcher struct {
	client    driven.SourceClient
	extractor driven.TextExtractor
	resolver  *PermissionResolver
	settings  *domain.Settings
	window    domain.Window
	inventory *domain.CollectionInventory
}

// NewHierarchyFetcher creates a fetcher for one collection and window.
func NewHierarchyFetcher(
	client driven.SourceClient,
	extractor driven.TextExtractor,
	resolver *PermissionResolver,
	settings *domain.Settings,
	window domain.Window,
	inventory *domain.CollectionInventory,
) *HierarchyFetcher {
	return &HierarchyFetcher{
		client:    client,
		extractor: extractor,
		resolver:  resolver,
		settings:  settings,
		window:    window,
		inventory: inventory,
	}
}

// FetchSites descends recursively from parentPath, returning the site
// paths discovered (with their last-modified times) and the documents
// for sites modified within the window. Descent continues into every
// returned child so that changes deep under an older parent are found.
func (f *HierarchyFetcher) FetchSites(ctx context.Context, parentPath string, window domain.Window) (map[string]time.Time, []domain.Document, error) {
	relURL := parentPath + "/_api/web/webs"
	logger.Debug("Fetching sites from %s for window %s", relURL, window)

	rows, err := f.client.Fetch(ctx, relURL, f.client.Query(window, domain.ObjectSites), driven.HintSites)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch sites under %s: %w", parentPath, err)
	}
	if len(rows) == 0 {
		logger.Debug("No sites under %s modified in %s", parentPath, window)
		return map[string]time.Time{}, nil, nil
	}

	sites := make(map[string]time.Time, len(rows))
	var docs []domain.Document

	for _, row := range rows {
		siteURL := stringField(row, "ServerRelativeUrl")
		if siteURL == "" {
			continue
		}
		sites[siteURL] = timeField(row, "LastItemModifiedDate")

		if f.settings.ObjectEnabled(domain.ObjectSites) {
			doc := f.projectDocument(domain.ObjectSites, row)
			if f.settings.EnablePermissions {
				doc.Permissions = f.resolver.Resolve(ctx, domain.ObjectSites, PermissionScope{Site: siteURL})
			}
			docs = append(docs, doc)
			f.inventory.AddSite(doc.ID, siteURL)
		}

		childSites, childDocs, err := f.FetchSites(ctx, siteURL, window)
		if err != nil {
			return nil, nil, err
		}
		for child, modified := range childSites {
			sites[child] = modified
		}
		docs = append(docs, childDocs...)
	}
	return sites, docs, nil
}

// FetchLists fetches the lists of the given sites, separating content
// lists from libraries (file containers). Sites last modified before
// the window start are skipped entirely.
func (f *HierarchyFetcher) FetchLists(ctx context.Context, sites map[string]time.Time) (map[string]ListMeta, map[string]ListMeta, []domain.Document, error) {
	lists := make(map[string]ListMeta)
	libraries := make(map[string]ListMeta)
	var docs []domain.Document

	for site, modified := range sites {
		if !modified.IsZero() && modified.Before(f.window.Start) {
			continue
		}
		relURL := site + "/_api/web/lists"
		logger.Debug("Fetching lists for site %s", site)

		rows, err := f.client.Fetch(ctx, relURL, f.client.Query(f.window, domain.ObjectLists), driven.HintLists)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fetch lists for %s: %w", site, err)
		}
		if len(rows) == 0 {
			logger.Debug("No lists for site %s modified in %s", site, f.window)
			continue
		}

		for _, row := range rows {
			id := stringField(row, "Id")
			meta := ListMeta{
				SiteURL:      stringField(row, "ParentWebUrl"),
				Title:        stringField(row, "Title"),
				LastModified: timeField(row, "LastItemModifiedDate"),
			}
			// BaseType 1 is a document library.
			if intField(row, "BaseType") == 1 {
				libraries[id] = meta
			} else {
				lists[id] = meta
			}

			if f.settings.ObjectEnabled(domain.ObjectLists) {
				doc := f.projectDocument(domain.ObjectLists, row)
				if f.settings.EnablePermissions {
					doc.Permissions = f.resolver.Resolve(ctx, domain.ObjectLists, PermissionScope{Site: meta.SiteURL, ListID: doc.ID})
				}
				doc.URL = site + "/Lists/" + sanitiseTitle(meta.Title)
				docs = append(docs, doc)
				f.inventory.AddList(site, doc.ID, meta.Title)
			}
		}
	}
	return lists, libraries, docs, nil
}

// FetchItems fetches the rows of the given content lists. Rows carrying
// attachments get their first attachment downloaded and extracted into
// the document body; extraction failure leaves the body empty.
func (f *HierarchyFetcher) FetchItems(ctx context.Context, lists map[string]ListMeta) ([]domain.Document, error) {
	var docs []domain.Document
	query := f.client.Query(f.window, domain.ObjectListItems)

	for listID, meta := range lists {
		if !meta.LastModified.IsZero() && meta.LastModified.Before(f.window.Start) {
			continue
		}
		relURL := fmt.Sprintf("%s/_api/web/lists(guid'%s')/items", meta.SiteURL, listID)
		logger.Debug("Fetching items for list %q from %s", meta.Title, relURL)

		rows, err := f.client.Fetch(ctx, relURL, query, driven.HintListItems)
		if err != nil {
			return nil, fmt.Errorf("fetch items for list %s: %w", meta.Title, err)
		}
		if len(rows) == 0 {
			logger.Debug("No items for list %q modified in %s", meta.Title, f.window)
			continue
		}

		attachments := f.fetchAttachmentIndex(ctx, meta.SiteURL, listID, query)
		baseItemURL := fmt.Sprintf("%s/Lists/%s/DispForm.aspx?ID=", meta.SiteURL, sanitiseTitle(meta.Title))

		for _, row := range rows {
			doc := f.projectDocument(domain.ObjectListItems, row)
			if boolField(row, "Attachments") {
				if fileURL, ok := attachments[stringField(row, "Title")]; ok {
					doc.Body = f.extractFile(ctx, meta.SiteURL, fileURL)
				}
			}
			itemID := stringField(row, "Id")
			if f.settings.EnablePermissions {
				doc.Permissions = f.resolver.Resolve(ctx, domain.ObjectListItems, PermissionScope{Site: meta.SiteURL, ListID: listID, ItemID: itemID})
			}
			doc.URL = baseItemURL + itemID
			docs = append(docs, doc)
			f.inventory.AddItem(domain.ObjectListItems, meta.SiteURL, listID, doc.ID)
		}
	}
	return docs, nil
}

// FetchDriveItems fetches the files and folders of the given libraries.
// File bodies pass through text extraction; folders carry metadata only.
func (f *HierarchyFetcher) FetchDriveItems(ctx context.Context, libraries map[string]ListMeta) ([]domain.Document, error) {
	var docs []domain.Document
	query := f.client.Query(f.window, domain.ObjectDriveItems)

	for libID, meta := range libraries {
		if !meta.LastModified.IsZero() && meta.LastModified.Before(f.window.Start) {
			continue
		}
		relURL := fmt.Sprintf("%s/_api/web/lists(guid'%s')/items?$select=Modified,Id,GUID,File,Folder&$expand=File,Folder", meta.SiteURL, libID)
		logger.Debug("Fetching files for library %q from %s", meta.Title, relURL)

		rows, err := f.client.Fetch(ctx, relURL, query, driven.HintDriveItems)
		if err != nil {
			return nil, fmt.Errorf("fetch drive items for library %s: %w", meta.Title, err)
		}
		if len(rows) == 0 {
			logger.Debug("No files for library %q modified in %s", meta.Title, f.window)
			continue
		}

		for _, row := range rows {
			entry, _ := row["File"].(map[string]any)
			docType := "file"
			if stringField(entry, "TimeLastModified") == "" {
				entry, _ = row["Folder"].(map[string]any)
				docType = "folder"
			}
			if entry == nil {
				continue
			}

			doc := f.projectDocument(domain.ObjectDriveItems, entry)
			doc.Type = docType
			doc.ID = stringField(row, "GUID")
			doc.URL = stringField(entry, "ServerRelativeUrl")
			if docType == "file" {
				doc.Body = f.extractFile(ctx, meta.SiteURL, doc.URL)
			}
			if f.settings.EnablePermissions {
				itemID := stringField(row, "ID")
				if itemID == "" {
					itemID = stringField(row, "Id")
				}
				doc.Permissions = f.resolver.Resolve(ctx, domain.ObjectDriveItems, PermissionScope{Site: meta.SiteURL, ListID: libID, ItemID: itemID})
			}
			docs = append(docs, doc)
			f.inventory.AddItem(domain.ObjectDriveItems, meta.SiteURL, libID, doc.ID)
		}
	}
	return docs, nil
}

// fetchAttachmentIndex maps item titles to the server-relative URL of
// their first attachment file. Failures degrade to no attachments.
func (f *HierarchyFetcher) fetchAttachmentIndex(ctx context.Context, siteURL, listID, query string) map[string]string {
	relURL := fmt.Sprintf("%s/_api/web/lists(guid'%s')/items?$select=Attachments,AttachmentFiles,Title&$expand=AttachmentFiles", siteURL, listID)
	rows, err := f.client.Fetch(ctx, relURL, query, driven.HintAttachment)
	if err != nil {
		logger.Debug("Failed to fetch attachment details for list %s: %v", listID, err)
		return nil
	}

	index := make(map[string]string, len(rows))
	for _, row := range rows {
		files, ok := row["AttachmentFiles"].(map[string]any)
		if !ok {
			continue
		}
		results, ok := files["results"].([]any)
		if !ok || len(results) == 0 {
			continue
		}
		first, ok := results[0].(map[string]any)
		if !ok {
			continue
		}
		if fileURL := stringField(first, "ServerRelativeUrl"); fileURL != "" {
			index[stringField(row, "Title")] = fileURL
		}
	}
	return index
}

// extractFile downloads a file by server-relative URL and runs it
// through text extraction. Any failure is logged and yields an empty body.
func (f *HierarchyFetcher) extractFile(ctx context.Context, siteURL, fileURL string) string {
	if f.extractor == nil || fileURL == "" {
		return ""
	}
	relURL := fmt.Sprintf("%s/_api/web/GetFileByServerRelativeUrl('%s')/$value", siteURL, encodePath(fileURL))
	content, err := f.client.FetchBinary(ctx, relURL)
	if err != nil {
		logger.Warn("Failed to download file %s: %v", fileURL, err)
		return ""
	}
	body, err := f.extractor.Extract(ctx, content)
	if err != nil {
		logger.Error("Error while extracting the contents of %s: %v", fileURL, err)
		return ""
	}
	return body
}

// projectDocument maps a response row through the configured schema of
// t. The id field is always populated; datetime fields are normalised
// to RFC 3339 so the index accepts them.
func (f *HierarchyFetcher) projectDocument(t domain.ObjectType, row map[string]any) domain.Document {
	schema := f.settings.Schema(t)
	doc := domain.Document{Type: t.DocType(), Fields: make(map[string]any, len(schema))}
	for field, responseField := range schema {
		value, ok := row[responseField]
		if !ok {
			continue
		}
		if s, isString := value.(string); isString && isDateField(field) {
			value = normaliseDate(s)
		}
		if field == "id" {
			doc.ID = fmt.Sprintf("%v", value)
			continue
		}
		doc.Fields[field] = value
	}
	if doc.ID == "" {
		doc.ID = stringField(row, schema["id"])
	}
	return doc
}

func isDateField(field string) bool {
	return field == "created_at" || field == "last_updated"
}

// normaliseDate appends a UTC designator to SharePoint datetimes that
// lack one; the index rejects zoneless values.
func normaliseDate(s string) string {
	if s == "" || strings.HasSuffix(s, "Z") || strings.ContainsAny(s[strings.LastIndexByte(s, 'T')+1:], "+-") {
		return s
	}
	return s + "Z"
}

// sanitiseTitle strips characters SharePoint drops from list URLs.
func sanitiseTitle(title string) string {
	return titleSanitiser.ReplaceAllString(title, "")
}

// encodePath escapes each path segment, doubling single quotes because
// a quote is an escape character in OData literals.
func encodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.ReplaceAll(strings.Join(segments, "/"), "'", "''")
}

// stringField reads a string attribute from a response row.
func stringField(row map[string]any, key string) string {
	if row == nil {
		return ""
	}
	switch v := row[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// intField reads a numeric attribute from a response row.
func intField(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// boolField reads a boolean attribute from a response row.
func boolField(row map[string]any, key string) bool {
	b, _ := row[key].(bool)
	return b
}

// spTimeLayouts are the datetime formats SharePoint responses use.
var spTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// timeField parses a datetime attribute, returning the zero time when
// missing or unparseable.
func timeField(row map[string]any, key string) time.Time {
	s, _ := row[key].(string)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range spTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
