package pathengine

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// exprCache keeps compiled expressions keyed by role and source text.
// Compile failures are not cached.
type exprCache[V any] struct {
	cache *lru.Cache[string, V]
}

func newExprCache[V any](size int) *exprCache[V] {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &exprCache[V]{cache: c}
}

func (c *exprCache[V]) get(r role, expr string, compile func() (V, error)) (V, error) {
	key := r.String() + "\x00" + expr
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := compile()
	if err != nil {
		return v, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// Len reports how many compiled expressions are cached.
func (c *exprCache[V]) Len() int {
	return c.cache.Len()
}
