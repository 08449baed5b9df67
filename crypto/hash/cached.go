package hash

import (
	"context"
	"fmt"
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"

	"github.com/zkpodai/attested-audio/model/encoding"
	"github.com/zkpodai/attested-audio/module"
)

// CachedHasher memoizes the results of another AudioHasher, keyed by a SHA3-256 digest
// of the audio. Failures are not cached.
type CachedHasher struct {
	hasher module.AudioHasher
	cache  *lru.Cache[string, *big.Int]
}

var _ module.AudioHasher = (*CachedHasher)(nil)

func NewCachedHasher(hasher module.AudioHasher, size int) (*CachedHasher, error) {
	cache, err := lru.New[string, *big.Int](size)
	if err != nil {
		return nil, fmt.Errorf("could not create audio hash cache: %w", err)
	}
	return &CachedHasher{
		hasher: hasher,
		cache:  cache,
	}, nil
}

func (c *CachedHasher) Hash(ctx context.Context, audio []byte) (*big.Int, error) {
	key := audioKey(audio)
	if cached, ok := c.cache.Get(key); ok {
		return new(big.Int).Set(cached), nil
	}

	digest, err := c.hasher.Hash(ctx, audio)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, new(big.Int).Set(digest))
	return digest, nil
}

func audioKey(audio []byte) string {
	h := sha3.New256()
	h.Write([]byte(encoding.AudioHashTag))
	h.Write(audio)
	return string(h.Sum(nil))
}
