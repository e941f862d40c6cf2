// Package naming parses and composes the canonical file naming scheme.
//
// A canonical file name encodes project, step, an optional free-form
// resource, and for snapshots the review state plus a zero-padded version:
//
//	myproj_mod_char01_WIP_v007.ma
//	myproj_mod_char01.ma
//
// Project, step, state, and item short names are restricted to
// [A-Za-z0-9-]; the codec reports ops.ErrMalformedName rather than
// truncating. Item type and short name are inferred from the nearest
// `<project>_<A|S|G>_<short>` folder above the file.
package naming
