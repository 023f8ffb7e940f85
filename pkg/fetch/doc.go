// Package fetch downloads single images.
//
// A Pipeline probes a URL, streams the body to a uniquely named file under a
// size cap while hashing it, and records new content in the manifest.
// Every call ends in exactly one Outcome; partial files never survive an
// aborted attempt.
package fetch
