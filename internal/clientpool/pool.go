// Package clientpool hands each worker a dedicated, reusable HTTP client.
package clientpool

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Config controls the clients built by the pool.
type Config struct {
	// Timeout bounds a whole request, including reading the body.
	Timeout time.Duration
	// MaxIdleConnsPerHost caps the keep-alive connections each worker holds open.
	MaxIdleConnsPerHost int
}

// Pool is an arena of per-worker clients indexed by worker ID. A client is created on
// the worker's first Get and returned unchanged for the rest of the run.
type Pool struct {
	cfg          Config
	newTransport func(Config) http.RoundTripper

	mu      sync.Mutex
	clients map[int]*http.Client
}

// New builds an empty Pool.
func New(cfg Config) *Pool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 2
	}
	return &Pool{
		cfg:          cfg,
		newTransport: newHTTPTransport,
		clients:      make(map[int]*http.Client),
	}
}

// Get returns the client owned by workerID, allocating it on first use.
func (p *Pool) Get(workerID int) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[workerID]; ok {
		return client
	}
	client := &http.Client{
		Transport: p.newTransport(p.cfg),
		Timeout:   p.cfg.Timeout,
	}
	p.clients[workerID] = client
	return client
}

// Len reports how many workers have been handed a client.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// CloseIdle drops idle keep-alive connections held by every client.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, client := range p.clients {
		client.CloseIdleConnections()
	}
}

func newHTTPTransport(cfg Config) http.RoundTripper {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
	}
}
