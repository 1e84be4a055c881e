// Package geocache provides a proximity-aware cache of location entries.
//
// GeoCache sits in front of a persistent store.Store and keeps it free of
// duplicate places. Entries are keyed by their normalized address: case is
// folded, surrounding whitespace is trimmed, and runs of internal whitespace
// collapse to a single space. Two entries whose addresses normalize to the
// same key are the same place, and upserting the second overwrites the
// first.
//
// ## Writes
//
// Upserts of the same key are serialized so that a lookup followed by an
// insert can never race into two stored entries for one address. Each key
// has its own lock, taken only for the duration of one upsert, so writes of
// unrelated keys never wait on each other. When concurrent upserts target
// the same key, the one that acquires the lock last wins.
//
// ## Reads
//
// Bounding-box queries go straight to the store without taking any cache
// lock. A query returns every stored entry whose coordinates lie inside the
// box, edges included, in no particular order. An empty result is a cache
// miss; it is not an error.
//
// The box searched around an origin extends a fixed margin in degrees along
// each axis. The margin is not scaled by latitude, so the box covers less
// ground east-to-west near the poles.
package geocache
