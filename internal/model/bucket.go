package model

// BucketMillis is the width of a snapshot bucket in epoch milliseconds.
const BucketMillis int64 = 300_000

// Bucket returns the 5-minute bucket index containing tsMillis.
func Bucket(tsMillis int64) int64 {
	return tsMillis / BucketMillis
}
