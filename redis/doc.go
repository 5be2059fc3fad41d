// Package redis backs the saga journal with Redis so a crashed or
// redeployed worker can replay the completed steps of an in-flight request.
//
// TypedStore implements provider.ContextStore[C] with JSON values:
//
//	client, _ := redis.New(cfg, log)
//	store := redis.NewTypedStore[transcription.JournalEntry](client, "journal")
//	journal := transcription.NewStoreJournal(store, 24*time.Hour, log)
//
// Component wires the client into the component registry with a PING
// health check.
package redis
