// Package workflow sequences the pipeline operations a user runs on a scene:
// save, save as, incremental save with status, publish, version history and
// restore, open, preview, template publishing, and import.
//
// The Manager owns no UI. Every interactive choice comes from a Dialogs
// implementation, which either returns plain data or ops.ErrCanceled; a
// cancellation aborts the operation before any file is written. Once the host
// has saved the scene, snapshotting and metadata always run to completion.
package workflow
