// Package catalog loads book records for import.
//
// A source is a local path or an s3://bucket/key URL. Sources ending in
// ".zst" are zstd-compressed. The content must be a JSON array of book
// objects; each record gets its field defaults applied on load.
package catalog
