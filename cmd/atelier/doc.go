// Package main hosts the Atelier CLI entrypoint and command graph.
//
// Each scene command opens the named scene in a disk host, builds a workflow
// manager over the configured version store, metadata store, and registry,
// and answers the manager's dialogs from command flags. A dialog that has no
// flag answer cancels the command before anything is written.
//
// Keep this package lean: behavior belongs in internal/workflow and friends,
// the commands here only translate flags into options and render results.
package main
