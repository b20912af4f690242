package testcache

import (
	"time"

	"github.com/go-redis/cache/v8"
)

func Open() *cache.Cache {
	return cache.New(&cache.Options{
		LocalCache: cache.NewTinyLFU(100, time.Minute),
	})
}
