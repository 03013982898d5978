// Package qdrant provides a Qdrant-backed storage.CollectionStore using
// Qdrant's REST API.
//
// Collections are created with the store's vector size and distance, two
// default segments and a replication factor of one. Writes use wait=true so
// a successful Upsert means the points are searchable.
package qdrant
