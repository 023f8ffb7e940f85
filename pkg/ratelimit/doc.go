// Package ratelimit keeps imgfetch polite towards the servers it contacts.
//
// NewTokenBucket builds a Limiter from a requests-per-minute budget, and
// NewRoundTripper applies it to every outbound HTTP request, HEAD probes
// included.
package ratelimit
