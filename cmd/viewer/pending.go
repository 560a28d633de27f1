package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kass/go-openroute/pkg/routing"
)

// pending is an in-flight route request
type pending struct {
	profile routing.Profile
	started time.Time
	cancel  context.CancelFunc
}

// pendingRequests correlates route results with the request that asked
// for them. It is only touched from the bubbletea update loop.
type pendingRequests struct {
	requests map[uuid.UUID]pending
}

func newPendingRequests() *pendingRequests {
	return &pendingRequests{requests: make(map[uuid.UUID]pending)}
}

// start registers a new request and supersedes every older one, whose
// results will be dropped
func (p *pendingRequests) start(parent context.Context, profile routing.Profile) (uuid.UUID, context.Context) {
	p.cancelAll()

	ctx, cancel := context.WithCancel(parent)
	token := uuid.New()
	p.requests[token] = pending{profile: profile, started: time.Now(), cancel: cancel}
	return token, ctx
}

// resolve removes the request for token. ok is false for stale tokens.
func (p *pendingRequests) resolve(token uuid.UUID) (pending, bool) {
	req, ok := p.requests[token]
	if !ok {
		return pending{}, false
	}
	delete(p.requests, token)
	req.cancel()
	return req, true
}

// cancelAll aborts and forgets every request
func (p *pendingRequests) cancelAll() {
	for token, req := range p.requests {
		req.cancel()
		delete(p.requests, token)
	}
}

func (p *pendingRequests) count() int {
	return len(p.requests)
}
