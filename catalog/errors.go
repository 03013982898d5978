package catalog

import "errors"

var (
	// ErrNotFound indicates the source does not exist.
	ErrNotFound = errors.New("catalog not found")

	// ErrMalformed indicates the source is not a JSON array of book records.
	ErrMalformed = errors.New("malformed catalog")

	// ErrS3NotConfigured indicates an s3:// source without S3 settings.
	ErrS3NotConfigured = errors.New("s3 source requires s3 configuration")
)
