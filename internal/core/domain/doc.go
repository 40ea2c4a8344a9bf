// Package domain contains the core types of the spsync connector:
// SharePoint object types and their field schemas, normalised documents,
// sync windows, the local object-id inventory and connector settings.
package domain
