package domain

// Document is the normalised ingestion unit produced from a SharePoint
// object. Fields holds the schema-projected subset of source attributes;
// ID is the stable join key between the inventory, the deletion
// reconciler and the search index.
type Document struct {
	// Type is the document kind: site, list, item, file or folder.
	Type string

	// ID is the stable source-assigned identifier. Always populated.
	ID string

	// URL is the synthesised or source-provided location of the object.
	URL string

	// Body is the extracted plain-text content, empty when extraction
	// failed or the object has no binary payload.
	Body string

	// Permissions is the resolved principal list, nil when document
	// level permissions are disabled.
	Permissions []string

	// Fields is the schema-projected attribute map.
	Fields map[string]any
}

// Payload flattens the document into the field map sent to the search
// index. The id field always wins over any schema field of the same name.
func (d Document) Payload() map[string]any {
	payload := make(map[string]any, len(d.Fields)+4)
	for field, value := range d.Fields {
		payload[field] = value
	}
	payload["type"] = d.Type
	payload["id"] = d.ID
	if d.URL != "" {
		payload["url"] = d.URL
	}
	if d.Body != "" {
		payload["body"] = d.Body
	}
	if d.Permissions != nil {
		payload["_allow_permissions"] = d.Permissions
	}
	return payload
}
