package domain

import "fmt"

// ObjectType identifies a SharePoint object family handled by the sync.
// The set is closed; each type carries its own field schema and fetch
// behaviour, resolved once at startup.
type ObjectType string

// Object types, in hierarchy order.
const (
	ObjectSites      ObjectType = "sites"
	ObjectLists      ObjectType = "lists"
	ObjectListItems  ObjectType = "list_items"
	ObjectDriveItems ObjectType = "drive_items"
)

// AllObjectTypes returns the object types in fetch order: containers first.
func AllObjectTypes() []ObjectType {
	return []ObjectType{ObjectSites, ObjectLists, ObjectListItems, ObjectDriveItems}
}

// ParseObjectType converts a string into an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	switch ObjectType(s) {
	case ObjectSites, ObjectLists, ObjectListItems, ObjectDriveItems:
		return ObjectType(s), nil
	default:
		return "", fmt.Errorf("unknown object type %q", s)
	}
}

// IsValid returns true if the object type is recognised.
func (t ObjectType) IsValid() bool {
	switch t {
	case ObjectSites, ObjectLists, ObjectListItems, ObjectDriveItems:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ObjectType) String() string {
	return string(t)
}

// DocType returns the "type" field value written into documents produced
// for this object type. Drive items override this per row (file or folder).
func (t ObjectType) DocType() string {
	switch t {
	case ObjectSites:
		return "site"
	case ObjectLists:
		return "list"
	case ObjectListItems:
		return "item"
	case ObjectDriveItems:
		return "file"
	default:
		return ""
	}
}

// DefaultSchema maps normalised document fields to the SharePoint response
// fields used to populate them. The "id" key is always present.
func (t ObjectType) DefaultSchema() map[string]string {
	switch t {
	case ObjectSites:
		return map[string]string{
			"created_at":   "Created",
			"id":           "Id",
			"last_updated": "LastItemModifiedDate",
			"relative_url": "ServerRelativeUrl",
			"title":        "Title",
			"url":          "Url",
		}
	case ObjectLists:
		return map[string]string{
			"created_at":   "Created",
			"id":           "Id",
			"relative_url": "ParentWebUrl",
			"title":        "Title",
		}
	case ObjectListItems:
		return map[string]string{
			"title":      "Title",
			"id":         "GUID",
			"created_at": "Created",
			"author_id":  "AuthorId",
		}
	case ObjectDriveItems:
		return map[string]string{
			"title":        "Name",
			"id":           "GUID",
			"created_at":   "TimeCreated",
			"last_updated": "TimeLastModified",
		}
	default:
		return nil
	}
}

// FieldFilter narrows an object type's default schema. Include takes
// precedence over Exclude when both are given; "id" is always retained.
type FieldFilter struct {
	IncludeFields []string `yaml:"include_fields"`
	ExcludeFields []string `yaml:"exclude_fields"`
}

// Apply projects the default schema of t through the filter.
func (f *FieldFilter) Apply(t ObjectType) map[string]string {
	schema := t.DefaultSchema()
	if f == nil || (len(f.IncludeFields) == 0 && len(f.ExcludeFields) == 0) {
		return schema
	}

	projected := make(map[string]string, len(schema))
	if len(f.IncludeFields) > 0 {
		for field, responseField := range schema {
			if contains(f.IncludeFields, responseField) {
				projected[field] = responseField
			}
		}
	} else {
		for field, responseField := range schema {
			if !contains(f.ExcludeFields, responseField) {
				projected[field] = responseField
			}
		}
	}
	projected["id"] = schema["id"]
	return projected
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
