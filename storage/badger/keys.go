package badger

import (
	"github.com/poiesic/shelfvec/core"
)

// Key prefixes for different data types
const (
	collectionPrefix = "col:"
	pointPrefix      = "pt:"
	embeddingPrefix  = "emb:"
)

// makeCollectionKey generates the key holding a collection's configuration.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makePointPrefix generates the prefix shared by all points of a collection.
// Format: prefix:name\x00
func makePointPrefix(name string) []byte {
	buf := make([]byte, 0, len(pointPrefix)+len(name)+1)
	buf = append(buf, pointPrefix...)
	buf = append(buf, name...)
	return append(buf, 0)
}

// makePointKey generates a key for a point.
// Format: prefix:name\x00<16 id bytes>
func makePointKey(name string, id core.PointID) []byte {
	return append(makePointPrefix(name), id[:]...)
}

// pointIDFromKey extracts the identifier from a point key.
func pointIDFromKey(key []byte) (core.PointID, bool) {
	var id core.PointID
	if len(key) < len(id) {
		return id, false
	}
	copy(id[:], key[len(key)-len(id):])
	return id, true
}

// makeEmbeddingKey generates a key for a cached embedding.
func makeEmbeddingKey(hash []byte) []byte {
	return append([]byte(embeddingPrefix), hash...)
}
