// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package policy implements the per-participant forbid list, the transfer
// mode selector, and the filename/nickname safety checks shared by the hub
// and the participant.
//
// Every type here is mutated from exactly one goroutine, the owning
// session's or hub's single event-loop consumer, so none of these types
// synchronize internally.
package policy

import (
	"errors"
	"strings"
)

// ErrAlreadyForbidden is returned by ForbidSet.Forbid for a duplicate insert.
var ErrAlreadyForbidden = errors.New("policy: nickname already forbidden")

// ErrNotForbidden is returned by ForbidSet.Allow when the nickname was not
// in the set.
var ErrNotForbidden = errors.New("policy: nickname not forbidden")

// ForbidSet is the set of nicknames from whom a participant refuses file
// transfers.
type ForbidSet struct {
	nicks map[string]struct{}
}

// NewForbidSet returns an empty ForbidSet.
func NewForbidSet() *ForbidSet {
	return &ForbidSet{nicks: make(map[string]struct{})}
}

// Forbid adds nick to the set. ErrAlreadyForbidden if it was already present.
func (f *ForbidSet) Forbid(nick string) error {
	if _, ok := f.nicks[nick]; ok {
		return ErrAlreadyForbidden
	}
	f.nicks[nick] = struct{}{}
	return nil
}

// Allow removes nick from the set. ErrNotForbidden if it was not present.
func (f *ForbidSet) Allow(nick string) error {
	if _, ok := f.nicks[nick]; !ok {
		return ErrNotForbidden
	}
	delete(f.nicks, nick)
	return nil
}

// Contains reports whether nick is currently forbidden.
func (f *ForbidSet) Contains(nick string) bool {
	_, ok := f.nicks[nick]
	return ok
}

// Mode selects the transfer transport: a reliable stream (TCP) or a
// best-effort datagram (UDP). The wire names "secure"/"fast" are historical
// and carry no cryptographic meaning.
type Mode int

const (
	Stream Mode = iota
	Datagram
)

// String renders the wire token for Mode.
func (m Mode) String() string {
	if m == Datagram {
		return "fast"
	}
	return "secure"
}

// ParseMode parses the wire token for a transfer mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "secure":
		return Stream, true
	case "fast":
		return Datagram, true
	default:
		return 0, false
	}
}

// ValidNickname reports whether nick may be used to authenticate: non-empty
// and containing no ':'.
func ValidNickname(nick string) bool {
	return nick != "" && !strings.ContainsRune(nick, ':')
}

// ValidFilename reports whether name passes the transfer safety check:
// non-empty, not starting with '.', and containing no '/'.
func ValidFilename(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}
	return !strings.ContainsRune(name, '/')
}
