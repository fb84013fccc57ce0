// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nishisan-dev/ntalk/internal/policy"
)

// ErrNicknameInvalid is returned when a nickname contains ':' or is empty.
var ErrNicknameInvalid = errors.New("hub: invalid nickname")

// ErrNicknameTaken is returned when a nickname is already indexed.
var ErrNicknameTaken = errors.New("hub: nickname already taken")

// Registry is the set of connected peers plus the nickname index. It is
// mutated only from the hub's single event-loop goroutine, so it does not
// synchronize internally. Peers are keyed by a monotonic ticket, giving
// stable iteration plus O(1) removal by handle without an intrusive list.
type Registry struct {
	peers  map[string]*Peer
	byNick map[string]*Peer
	order  []string // insertion order, for stable iteration (e.g. /who)
	nextID uint64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		peers:  make(map[string]*Peer),
		byNick: make(map[string]*Peer),
	}
}

// nextTicket returns a fresh, never-reused peer id.
func (r *Registry) nextTicket() string {
	r.nextID++
	return fmt.Sprintf("p%d", r.nextID)
}

// Add registers a freshly accepted connection as an unauthenticated peer,
// assigning it a fresh ticket when p.ID is empty.
func (r *Registry) Add(p *Peer) {
	if p.ID == "" {
		p.ID = r.nextTicket()
	}
	r.peers[p.ID] = p
	r.order = append(r.order, p.ID)
}

// Get looks up a peer by its registry ticket.
func (r *Registry) Get(id string) (*Peer, bool) {
	p, ok := r.peers[id]
	return p, ok
}

// ByNick looks up an authenticated peer by nickname.
func (r *Registry) ByNick(nick string) (*Peer, bool) {
	p, ok := r.byNick[nick]
	return p, ok
}

// Authenticate assigns nick to p and inserts it into the nickname index.
// Fails with ErrNicknameInvalid or ErrNicknameTaken, leaving p untouched.
func (r *Registry) Authenticate(p *Peer, nick string) error {
	if !policy.ValidNickname(nick) {
		return ErrNicknameInvalid
	}
	if _, ok := r.byNick[nick]; ok {
		return ErrNicknameTaken
	}
	p.Nickname = nick
	r.byNick[nick] = p
	return nil
}

// Remove drops p from both the peer map and the nickname index.
func (r *Registry) Remove(id string) {
	p, ok := r.peers[id]
	if !ok {
		return
	}
	if p.Nickname != "" {
		delete(r.byNick, p.Nickname)
	}
	delete(r.peers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Peers returns all registered peers (authenticated or not) in insertion
// order.
func (r *Registry) Peers() []*Peer {
	out := make([]*Peer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.peers[id])
	}
	return out
}

// WhoList returns the authenticated nicknames, sorted, for /who.
func (r *Registry) WhoList() []string {
	names := make([]string, 0, len(r.byNick))
	for n := range r.byNick {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Broadcast enqueues payload on every authenticated, non-draining peer's
// output queue except exclude (which may be nil to exclude no one).
func (r *Registry) Broadcast(payload []byte, exclude *Peer) {
	for _, id := range r.order {
		p := r.peers[id]
		if p == exclude || !p.Authenticated() || p.Draining {
			continue
		}
		p.Chan.Push(payload)
	}
}
