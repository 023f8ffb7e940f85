// Package manifest persists the content-hash index of an output directory.
//
// The on-disk shape is
//
//	{"hashes": {"<sha256 hex>": "<filename>"}, "files": ["<filename>", ...]}
//
// Record is the only mutator and keeps both views in step; Verify reports
// drift in files edited by hand.
package manifest
