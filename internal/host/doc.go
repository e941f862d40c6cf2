// Package host abstracts the content-creation application the pipeline drives.
//
// The orchestrator only asks a Host to save, open, import, and playblast
// scenes. Optional attribute writes report a Result instead of failing so
// callers can tell an applied write from a skipped one.
package host
