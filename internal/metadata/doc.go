// Package metadata persists small key/value records (version, state, comment,
// source snapshot, pipe type) beside artifacts without touching their content.
//
// Two backends are available: a YAML sidecar per folder, guarded by a file
// lock during read-modify-write, and a SQLite side database. Both are keyed
// by the artifact path and keep writes of different keys independent.
package metadata
