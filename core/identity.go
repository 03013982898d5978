package core

import "crypto/md5"

// PointIDFromKey derives a point identifier from a book key.
//
// The 128-bit MD5 digest of the key is used verbatim as the identifier bytes,
// so the same key maps to the same identifier in every run and process. No
// version bits are set: identifiers written by earlier imports stay valid and
// re-imports overwrite them in place.
func PointIDFromKey(key string) PointID {
	return PointID(md5.Sum([]byte(key)))
}
