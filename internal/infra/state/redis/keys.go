package redisstate

import "fmt"

// DefaultKeyPrefix namespaces every key and channel this service touches.
const DefaultKeyPrefix = "collab:"

// keyspace builds the Redis names shared by the update log and the bus.
type keyspace struct {
	prefix string
}

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return keyspace{prefix: prefix}
}

// updateLogKey is the list holding a document's updates, oldest at the head.
func (k keyspace) updateLogKey(documentID string) string {
	return fmt.Sprintf("%syjs_updates:%s", k.prefix, documentID)
}

// roomChannel is the pub/sub channel of a document's room.
func (k keyspace) roomChannel(documentID string) string {
	return fmt.Sprintf("%sdocument_%s", k.prefix, documentID)
}

// UpdateLogKey exposes the list key for operator tooling.
func UpdateLogKey(prefix, documentID string) string {
	return newKeyspace(prefix).updateLogKey(documentID)
}
