package aes128

import (
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
)

// Cache Expanded ciphers by key, so chained steps under one key expand it once
type Cache struct {
	ciphers utils.Cache[types.Block, *Cipher]
}

func NewCache(size int) *Cache {
	return &Cache{
		ciphers: utils.NewLRUCache[types.Block, *Cipher](size),
	}
}

func (c *Cache) Get(key types.Block) *Cipher {
	if c == nil {
		return NewCipher(key)
	}
	if cipher, ok := c.ciphers.Get(key); ok {
		return cipher
	}
	cipher := NewCipher(key)
	c.ciphers.Set(key, cipher)
	return cipher
}

// Clear Drops all expanded keys
func (c *Cache) Clear() {
	if c != nil {
		c.ciphers.Clear()
	}
}

func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.ciphers.Stats()
}
