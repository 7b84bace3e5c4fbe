// Package routing derives vshard bucket ids from record keys.
//
// The bucket of a key is (crc32(key) mod bucketCount) + 1, where crc32 uses init 0xFFFFFFFF, reflected input and
// output and no final xor. Records written under a bucket computed here are read back through the cluster's own
// router, so the hash must match it bit for bit.
package routing

import (
	"hash/crc32"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Hash selects the crc32 polynomial used for bucket derivation.
type Hash string

const (
	// HashCrc32 uses the reflected 0xEDB88320 polynomial.
	HashCrc32 Hash = "crc32"
	// HashCrc32c uses the reflected Castagnoli polynomial, as Tarantool's digest.crc32 does.
	HashCrc32c Hash = "crc32c"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// BucketID maps key to a bucket in [1, bucketCount] using the 0xEDB88320 polynomial.
func BucketID(key string, bucketCount uint64) uint64 {
	return bucketOf(crc32.IEEETable, key, bucketCount)
}

// ParseHash converts a configuration value into a Hash.
func ParseHash(s string) (Hash, error) {
	switch Hash(strings.ToLower(s)) {
	case HashCrc32, "":
		return HashCrc32, nil
	case HashCrc32c:
		return HashCrc32c, nil
	default:
		return "", errors.Errorf("unknown routing hash %q", s)
	}
}

// checksum returns the crc without the final xor: crc32.Checksum complements its result on the way out.
func checksum(table *crc32.Table, key string) uint32 {
	return ^crc32.Checksum([]byte(key), table)
}

func bucketOf(table *crc32.Table, key string, bucketCount uint64) uint64 {
	return uint64(checksum(table, key))%bucketCount + 1
}

// Router computes buckets for a fixed bucket count, optionally caching recent keys.
type Router struct {
	bucketCount uint64
	table       *crc32.Table
	cache       *lru.Cache
}

// NewRouter returns a Router. A cacheSize of zero disables caching.
func NewRouter(bucketCount uint64, hash Hash, cacheSize int) (*Router, error) {
	if bucketCount == 0 {
		return nil, errors.New("bucket count must be positive")
	}
	r := &Router{
		bucketCount: bucketCount,
		table:       crc32.IEEETable,
	}
	if hash == HashCrc32c {
		r.table = castagnoliTable
	}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		r.cache = cache
	}
	return r, nil
}

// BucketCount returns the number of buckets keys are spread over.
func (r *Router) BucketCount() uint64 {
	return r.bucketCount
}

// Bucket returns the bucket of key.
func (r *Router) Bucket(key string) uint64 {
	if r.cache == nil {
		return bucketOf(r.table, key, r.bucketCount)
	}
	if bucket, ok := r.cache.Get(key); ok {
		return bucket.(uint64)
	}
	bucket := bucketOf(r.table, key, r.bucketCount)
	r.cache.Add(key, bucket)
	return bucket
}

// BucketOf returns the bucket of a numeric id, hashed through its decimal representation.
func (r *Router) BucketOf(id uint64) uint64 {
	return r.Bucket(strconv.FormatUint(id, 10))
}
