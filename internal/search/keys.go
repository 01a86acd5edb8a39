package search

import "strings"

// KeyBuilder addresses documents in the backing store.
// A document key is Namespace + Prefix + ":" + id.
type KeyBuilder struct {
	Namespace string
	Prefix    string
}

// IndexPrefix is the key prefix shared by every document of the index.
func (k KeyBuilder) IndexPrefix() string {
	return k.Namespace + k.Prefix + ":"
}

// Key returns the store key for a document id.
func (k KeyBuilder) Key(id string) string {
	return k.IndexPrefix() + id
}

// ID recovers the caller-facing id from a store key. Only the index prefix is
// removed, so ids containing ":" survive. Keys outside the prefix are returned as-is.
func (k KeyBuilder) ID(key string) string {
	return strings.TrimPrefix(key, k.IndexPrefix())
}

// IndexName qualifies an index name with the namespace.
func (k KeyBuilder) IndexName(name string) string {
	return k.Namespace + name
}
