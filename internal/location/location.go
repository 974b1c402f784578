// Package location abstracts the device positioning service as two event
// streams: authorization-status changes and coordinate updates. Events are
// produced on provider goroutines; the session marshals them onto its own
// loop before touching shared state.
package location

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wowedo/searchsync/internal/model"
)

type AuthStatus int

const (
	AuthNotDetermined AuthStatus = iota
	AuthAuthorizedWhenInUse
	AuthDenied
	AuthRestricted
)

func (s AuthStatus) String() string {
	switch s {
	case AuthNotDetermined:
		return "not_determined"
	case AuthAuthorizedWhenInUse:
		return "authorized_when_in_use"
	case AuthDenied:
		return "denied"
	case AuthRestricted:
		return "restricted"
	default:
		return fmt.Sprintf("AuthStatus(%d)", int(s))
	}
}

func ParseAuthStatus(s string) (AuthStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_determined", "notdetermined":
		return AuthNotDetermined, nil
	case "authorized_when_in_use", "authorized", "authorizedwheninuse":
		return AuthAuthorizedWhenInUse, nil
	case "denied":
		return AuthDenied, nil
	case "restricted":
		return AuthRestricted, nil
	default:
		return AuthNotDetermined, fmt.Errorf("unknown authorization status %q", s)
	}
}

type Provider interface {
	// RequestAuthorization asks the device for when-in-use permission.
	// Results arrive on Authorizations.
	RequestAuthorization()
	Authorizations() <-chan AuthStatus
	Coordinates() <-chan model.Coordinate
}

// ChannelProvider is a Provider fed externally: the gateway pushes events the
// client reports over HTTP, and tests push directly.
type ChannelProvider struct {
	auth   chan AuthStatus
	coords chan model.Coordinate

	mu       sync.Mutex
	requests int
}

func NewChannelProvider() *ChannelProvider {
	return &ChannelProvider{
		auth:   make(chan AuthStatus, 8),
		coords: make(chan model.Coordinate, 8),
	}
}

func (p *ChannelProvider) RequestAuthorization() {
	p.mu.Lock()
	p.requests++
	p.mu.Unlock()
}

// AuthorizationRequests reports how many times permission was requested.
func (p *ChannelProvider) AuthorizationRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *ChannelProvider) Authorizations() <-chan AuthStatus    { return p.auth }
func (p *ChannelProvider) Coordinates() <-chan model.Coordinate { return p.coords }

// PushAuthorization delivers an authorization change. The send drops when the
// buffer is full so a stalled consumer never blocks the producer; only the
// latest status matters.
func (p *ChannelProvider) PushAuthorization(st AuthStatus) {
	select {
	case p.auth <- st:
	default:
	}
}

// PushCoordinate delivers a coordinate update, dropping on a full buffer.
func (p *ChannelProvider) PushCoordinate(c model.Coordinate) {
	select {
	case p.coords <- c:
	default:
	}
}
