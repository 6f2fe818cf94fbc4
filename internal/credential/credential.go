// Package credential tracks the API key used for paid video generation and
// asks connected clients for one when it is missing.
package credential

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDeclined is returned when no client supplied a key.
var ErrDeclined = errors.New("credential selection declined")

// Requester asks the user to pick a key. It returns the chosen key, which
// may be empty when the client manages the key itself, and whether the
// selection succeeded.
type Requester interface {
	RequestCredential(ctx context.Context) (key string, ok bool, err error)
}

// Provider holds the selected key. It is safe for concurrent use.
type Provider struct {
	mu        sync.RWMutex
	key       string
	selected  bool
	requester Requester
	timeout   time.Duration
	logger    *zap.Logger
}

// NewProvider returns a provider seeded with key, which may be empty.
func NewProvider(key string, requester Requester, timeout time.Duration, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	key = strings.TrimSpace(key)
	return &Provider{
		key:       key,
		selected:  key != "",
		requester: requester,
		timeout:   timeout,
		logger:    logger,
	}
}

// SetRequester attaches the requester once the transport exists.
func (p *Provider) SetRequester(r Requester) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requester = r
}

// HasCredential reports whether a key has been selected.
func (p *Provider) HasCredential(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected
}

// Key returns the selected key.
func (p *Provider) Key() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.key
}

// Set stores a selected key.
func (p *Provider) Set(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if key = strings.TrimSpace(key); key != "" {
		p.key = key
	}
	p.selected = true
}

// Invalidate forgets the selection so the next video request prompts again.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = false
}

// RequestCredential prompts for a key. It reports whether one was chosen.
func (p *Provider) RequestCredential(ctx context.Context) (bool, error) {
	p.mu.RLock()
	requester := p.requester
	p.mu.RUnlock()
	if requester == nil {
		return false, ErrDeclined
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	key, ok, err := requester.RequestCredential(ctx)
	if err != nil {
		p.logger.Warn("credential request failed", zap.Error(err))
		return false, err
	}
	if !ok {
		return false, nil
	}
	p.Set(key)
	p.logger.Info("credential selected", zap.Bool("key_supplied", key != ""))
	return true, nil
}
