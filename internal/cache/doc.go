// Package cache provides a flat, content-addressed directory of rendered images.
//
// Entries are named sr-<notation>-<key>.png where key is the 32-character hex
// MD5 of the canonical source fragment and the color options. The directory
// listing is the only index: a file that exists and can be opened is a hit.
// Writers stage their output in a hidden temporary file inside the cache
// directory and rename it into place, so readers never observe a partial
// image. There is no TTL and no eviction; Clear sweeps every file that
// follows the naming convention.
package cache
