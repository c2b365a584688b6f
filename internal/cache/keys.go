package cache

import "fmt"

// QueryResultKey keys a cached warehouse query result by the SQL hash and
// the row cap it was fetched with.
func QueryResultKey(sqlHash string, rowCap int) string {
	return fmt.Sprintf("warehouse:result:%s:%d", sqlHash, rowCap)
}

// RateLimitKey keys the per-API-key request counter.
func RateLimitKey(keyName string) string {
	return fmt.Sprintf("ratelimit:%s", keyName)
}
