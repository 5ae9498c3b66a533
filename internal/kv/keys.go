package kv

import "fmt"

// Key-naming helpers for the layout fixed by §6.2. Centralized so every
// component agrees on exact formatting.

func SnapshotKey(inst string, bucket int64) string {
	return fmt.Sprintf("snap5m:%s:%d", inst, bucket)
}

func SeriesKey(inst string) string {
	return fmt.Sprintf("series5m:%s", inst)
}

func LastBucketKey(inst string) string {
	return fmt.Sprintf("lastBucket:%s", inst)
}

func InstrumentMapKey(base string) string {
	return fmt.Sprintf("instmap:swap:%s", base)
}

// InstrumentListKey is the cached full SWAP-instrument listing.
const InstrumentListKey = "okx:instruments:swap:list:v1"

func LastStateKey(mode, inst string) string {
	return fmt.Sprintf("alert:lastState:%s:%s", mode, inst)
}

func LastState15mKey(inst string) string {
	return fmt.Sprintf("alert:lastState15m:%s", inst)
}

func LastSentAtKey(inst string) string {
	return fmt.Sprintf("alert:lastSentAt:%s", inst)
}

// NoneSentinel marks a base with no resolvable perpetual market.
const NoneSentinel = "__NONE__"
