package kv

import "time"

// TTLs fixed by §6.2's KV layout table.
const (
	SnapshotTTL       = 24 * time.Hour
	SeriesTTL         = 48 * time.Hour
	LastBucketTTL     = 48 * time.Hour
	InstrumentMapTTL  = 24 * time.Hour
	InstrumentListTTL = 12 * time.Hour
	HeartbeatTTL      = 24 * time.Hour
)
