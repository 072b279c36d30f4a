package frame

import (
	"github.com/google/uuid"
	"github.com/twmb/murmur3"
	"github.com/zeebo/xxh3"
)

// NameHash maps a stream name to the 64-bit identifier carried by every frame.
// It must be deterministic for a given name and match the server's hash.
type NameHash func(name []byte) uint64

// Murmur3Hash returns the first half of the 128-bit x64 MurmurHash3 of name with
// seed 0. This is the hash the server derives stream identifiers with.
func Murmur3Hash(name []byte) uint64 {
	h1, _ := murmur3.Sum128(name)
	return h1
}

// XXH3Hash returns the 64-bit XXH3 of name, for servers configured with xxh3
// stream identifiers.
func XXH3Hash(name []byte) uint64 {
	return xxh3.Hash(name)
}

// RandomSessionID returns a random (version 4) UUID.
func RandomSessionID() [SessionIDSize]byte {
	return [SessionIDSize]byte(uuid.New())
}
