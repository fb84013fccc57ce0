// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package command implements the line tokenizer and command table dispatcher
// shared by the hub's and participant's console/peer/hub command sets.
package command

import (
	"fmt"
	"sort"

	"github.com/nishisan-dev/ntalk/internal/bytequeue"
)

// Code is the three-valued result a Handler returns to the router.
type Code int

const (
	// OK means the command was processed; the session continues.
	OK Code = 0
	// Terminate asks the caller to end the session or process.
	Terminate Code = 1
	// OutOfMemory signals resource exhaustion; the router mirrors a canned
	// message on the caller's channel and, if different, the local console.
	OutOfMemory Code = 2
)

// Handler executes one command given its tokenized arguments (the command
// name itself is not included).
type Handler func(args [][]byte) Code

// Command is one entry in a dispatch table. MaxArity is zero for the common
// fixed-arity case; a command with optional trailing arguments (e.g. the
// participant's "/connect <nick> <host> [port]") sets it to the largest
// argument count it accepts.
type Command struct {
	Name     string
	Arity    int // required argument count
	MaxArity int // 0 means exactly Arity
	Help     string
	Handler  Handler
}

// Table is a command set sorted lexicographically by Name. Build it with
// NewTable, which sorts a copy.
type Table []Command

// NewTable returns cmds sorted by Name, ready for Dispatch.
func NewTable(cmds []Command) Table {
	t := make(Table, len(cmds))
	copy(t, cmds)
	sort.Slice(t, func(i, j int) bool { return t[i].Name < t[j].Name })
	return t
}

// find performs a binary search for name, giving O(log n) lookup.
func (t Table) find(name string) (Command, bool) {
	i := sort.Search(len(t), func(i int) bool { return t[i].Name >= name })
	if i < len(t) && t[i].Name == name {
		return t[i], true
	}
	return Command{}, false
}

// isSpace reports whether b is a space or tab, the only token separators.
func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// Tokenize splits line on runs of spaces and tabs, discarding empty tokens
// produced by repeated separators or leading/trailing whitespace.
func Tokenize(line []byte) [][]byte {
	var tokens [][]byte
	i := 0
	for i < len(line) {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		start := i
		for i < len(line) && !isSpace(line[i]) {
			i++
		}
		if i > start {
			tokens = append(tokens, line[start:i])
		}
	}
	return tokens
}

// Dispatch tokenizes a command line (the leading '/' must already be
// stripped by the caller), looks up the command by name, validates arity,
// and invokes its handler. Canned responses are enqueued on out; OutOfMemory
// is additionally mirrored on console when console != out.
//
// Returns OK for a syntax error, an unknown command, or an arity mismatch
// (no handler is invoked in any of those cases); otherwise returns the
// handler's own Code.
func Dispatch(table Table, line []byte, out, console *bytequeue.Queue) Code {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		out.PushLine([]byte("*** Syntax error: empty command."))
		return OK
	}

	name := string(tokens[0])
	cmd, ok := table.find(name)
	if !ok {
		out.PushLine([]byte(fmt.Sprintf("*** Unknown command: /%s", name)))
		return OK
	}

	args := tokens[1:]
	max := cmd.MaxArity
	if max < cmd.Arity {
		max = cmd.Arity
	}
	if len(args) < cmd.Arity || len(args) > max {
		out.PushLine([]byte(fmt.Sprintf("*** Wrong number of arguments for /%s. Usage: %s", name, cmd.Help)))
		return OK
	}

	code := cmd.Handler(args)
	if code == OutOfMemory {
		msg := []byte("*** Out of memory.")
		out.PushLine(msg)
		if console != nil && console != out {
			console.PushLine(msg)
		}
	}
	return code
}
