// Package seed turns string keys into reproducible pseudo-random samples.
//
// Sample is a 32-bit FNV-1a hash over the UTF-16 code units of the key, scaled into the
// unit interval. The same key yields the same value in every process on every platform,
// which is what makes a synthetic feed regenerable from its as-of date alone.
package seed

import (
	"strings"
	"unicode/utf16"
)

const (
	offsetBasis uint32 = 2166136261
	prime       uint32 = 16777619
	maxUint32          = float64(^uint32(0))
)

// Sep joins the semantic fields of a key.
const Sep = ":"

// Hash returns the 32-bit FNV-1a hash of key's UTF-16 code units.
func Hash(key string) uint32 {
	h := offsetBasis
	for _, unit := range utf16.Encode([]rune(key)) {
		h ^= uint32(unit)
		h *= prime
	}
	return h
}

// Sample maps key to a value in [0, 1]. Only a hash of 0xFFFFFFFF reaches 1.
func Sample(key string) float64 {
	return float64(Hash(key)) / maxUint32
}

// Key joins fields into a seed key, e.g. Key("pick", "2025-03-14", "7").
func Key(parts ...string) string {
	return strings.Join(parts, Sep)
}
