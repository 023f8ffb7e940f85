// Package fetcher drives a whole fetch run: it parses the URL list, loads
// the manifest once and feeds each URL through the fetch pipeline in order,
// printing one outcome per URL.
package fetcher
