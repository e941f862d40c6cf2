// Package registry resolves files to production projects, items, and steps.
//
// The pipeline core talks to the Registry interface only. FileRegistry is the
// offline implementation backed by a YAML projects file; it also persists the
// status updates and publish notifications the orchestrator sends it.
package registry
