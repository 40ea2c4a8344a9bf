// Package driving defines the inbound ports of the sync engine, the
// operations the CLI invokes.
package driving
