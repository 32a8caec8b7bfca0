package utils

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// Shard maps a monitor ID onto one of n workers. Everything keyed by the
// same ID lands on the same worker, which is what keeps per-monitor
// processing ordered.
func Shard(id uuid.UUID, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % uint32(n))
}
