// Package driven defines the outbound ports of the sync engine: the
// SharePoint source client, the search index client, durable state
// stores and text extraction. Adapters implement these interfaces.
package driven
