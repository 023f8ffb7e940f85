// Package storage decides where fetched images land on disk.
//
// A Resolver turns response metadata into a sanitized filename and then
// into a path that does not collide with anything already in the output
// directory ("cat.jpg", "cat (1).jpg", "cat (2).jpg", ...).
package storage
