// Package timeouts centralizes the context deadlines used for database
// work so handlers do not scatter magic durations.
package timeouts

import "time"

// Short covers single-document lookups and writes.
func Short() time.Duration { return 3 * time.Second }

// Medium covers multi-document operations and transactions.
func Medium() time.Duration { return 8 * time.Second }

// Long covers list queries and exports that may scan a collection.
func Long() time.Duration { return 20 * time.Second }

// Ping bounds connectivity checks at startup and in health probes.
func Ping() time.Duration { return 2 * time.Second }
