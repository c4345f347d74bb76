package supervisor

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JoshuaRamirez/ACS-sub017/pkg/sdk"
)

// ClientPool caches one SDK client per worker endpoint so the router reuses
// transport connections instead of dialing per request. Eviction closes the
// client's idle connections; in-flight requests on an evicted client finish
// on their existing connection.
type ClientPool struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *sdk.Client]
}

// NewClientPool builds a pool bounded to size endpoints.
func NewClientPool(size int) (*ClientPool, error) {
	cache, err := lru.NewWithEvict(size, func(_ string, client *sdk.Client) {
		client.CloseIdleConnections()
	})
	if err != nil {
		return nil, err
	}
	return &ClientPool{cache: cache}, nil
}

// Get returns the pooled client for endpoint, creating it on first use.
// Concurrent callers for the same endpoint share one client.
func (p *ClientPool) Get(endpoint string) *sdk.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.cache.Get(endpoint); ok {
		return client
	}
	client := sdk.NewClient(endpoint)
	p.cache.Add(endpoint, client)
	return client
}

// Drop evicts the client for endpoint, closing its idle connections. Used
// when a worker is replaced and its old endpoint goes away.
func (p *ClientPool) Drop(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Remove(endpoint)
}

// Len reports how many endpoints currently have a pooled client.
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}
