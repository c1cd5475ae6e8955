// Package fact holds the read-only fact sets that guards evaluate and that
// audit records snapshot.
//
// Fact values are limited to four primitive kinds (Bool, Int, Float, String)
// behind a sealed interface. A Set is immutable and is always built by
// copying, so the snapshot stored with an audit record can never be changed
// through the map a caller passed in.
//
// The storage form is canonical JSON: sorted NFC normalised keys, string
// values exactly as given, no HTML escaping. Two equal sets always serialise
// to identical bytes, and decoding the bytes yields an equal set.
package fact
