package core

import "hash/fnv"

// Hash is the FNV-1a hash of key.
func Hash(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// Partition assigns key to one of numPartitions reducers. Every record with
// the same key lands in the same partition.
func Partition(key string, numPartitions int) int {
	if numPartitions <= 1 {
		return 0
	}
	return int(Hash(key) % uint32(numPartitions))
}
