// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package command

import (
	"strings"
	"testing"

	"github.com/nishisan-dev/ntalk/internal/bytequeue"
)

func drain(q *bytequeue.Queue) string {
	return string(q.Peek(q.Size()))
}

func testTable(called *bool, gotArgs *[][]byte) Table {
	return NewTable([]Command{
		{Name: "who", Arity: 0, Help: "/who", Handler: func(args [][]byte) Code {
			*called = true
			return OK
		}},
		{Name: "kill", Arity: 1, Help: "/kill <nick>", Handler: func(args [][]byte) Code {
			*called = true
			*gotArgs = args
			return OK
		}},
		{Name: "shutdown", Arity: 0, Help: "/shutdown", Handler: func(args [][]byte) Code {
			return Terminate
		}},
		{Name: "alloc", Arity: 0, Help: "/alloc", Handler: func(args [][]byte) Code {
			return OutOfMemory
		}},
	})
}

func TestDispatchBinarySearchFindsSortedCommand(t *testing.T) {
	var called bool
	var args [][]byte
	table := testTable(&called, &args)

	out := bytequeue.New('\n')
	code := Dispatch(table, []byte("kill bob"), out, out)
	if code != OK || !called {
		t.Fatalf("code=%v called=%v", code, called)
	}
	if len(args) != 1 || string(args[0]) != "bob" {
		t.Fatalf("args = %v", args)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	var called bool
	var args [][]byte
	table := testTable(&called, &args)

	out := bytequeue.New('\n')
	code := Dispatch(table, []byte("bogus"), out, out)
	if code != OK || called {
		t.Fatalf("code=%v called=%v", code, called)
	}
	if !strings.Contains(drain(out), "Unknown command") {
		t.Fatalf("out = %q", drain(out))
	}
}

func TestDispatchArityMismatchNeverCallsHandler(t *testing.T) {
	var called bool
	var args [][]byte
	table := testTable(&called, &args)

	out := bytequeue.New('\n')
	code := Dispatch(table, []byte("kill"), out, out)
	if code != OK || called {
		t.Fatalf("code=%v called=%v, want OK/false", code, called)
	}
	if !strings.Contains(drain(out), "Wrong number of arguments") {
		t.Fatalf("out = %q", drain(out))
	}
}

func TestDispatchEmptyCommandIsSyntaxError(t *testing.T) {
	var called bool
	var args [][]byte
	table := testTable(&called, &args)

	out := bytequeue.New('\n')
	code := Dispatch(table, []byte("   "), out, out)
	if code != OK || called {
		t.Fatalf("code=%v called=%v", code, called)
	}
	if !strings.Contains(drain(out), "Syntax error") {
		t.Fatalf("out = %q", drain(out))
	}
}

func TestDispatchTerminateCode(t *testing.T) {
	var called bool
	var args [][]byte
	table := testTable(&called, &args)

	out := bytequeue.New('\n')
	if code := Dispatch(table, []byte("shutdown"), out, out); code != Terminate {
		t.Fatalf("code = %v, want Terminate", code)
	}
}

func TestDispatchOutOfMemoryMirroredOnConsole(t *testing.T) {
	var called bool
	var args [][]byte
	table := testTable(&called, &args)

	out := bytequeue.New('\n')
	console := bytequeue.New('\n')
	if code := Dispatch(table, []byte("alloc"), out, console); code != OutOfMemory {
		t.Fatalf("code = %v, want OutOfMemory", code)
	}
	if !strings.Contains(drain(out), "Out of memory") {
		t.Fatalf("out = %q", drain(out))
	}
	if !strings.Contains(drain(console), "Out of memory") {
		t.Fatalf("console = %q", drain(console))
	}
}

func TestTokenizeSplitsOnSpaceAndTabRuns(t *testing.T) {
	tokens := Tokenize([]byte("  a\tb   c\t\td "))
	if len(tokens) != 4 {
		t.Fatalf("tokens = %q, want 4", tokens)
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if string(tokens[i]) != want {
			t.Fatalf("tokens[%d] = %q, want %q", i, tokens[i], want)
		}
	}
}

func TestDispatchOptionalTrailingArgs(t *testing.T) {
	var got [][]byte
	table := NewTable([]Command{{
		Name: "connect", Arity: 2, MaxArity: 3, Help: "/connect <nick> <host> [port]",
		Handler: func(args [][]byte) Code {
			got = args
			return OK
		},
	}})

	out := bytequeue.New('\n')
	if code := Dispatch(table, []byte("connect alice host"), out, out); code != OK || len(got) != 2 {
		t.Fatalf("two args: code=%v got=%v", code, got)
	}
	if code := Dispatch(table, []byte("connect alice host 4242"), out, out); code != OK || len(got) != 3 {
		t.Fatalf("three args: code=%v got=%v", code, got)
	}

	got = nil
	Dispatch(table, []byte("connect alice host 4242 extra"), out, out)
	if got != nil {
		t.Fatalf("four args must not reach the handler, got %v", got)
	}
	if !strings.Contains(drain(out), "Wrong number of arguments") {
		t.Fatalf("out = %q", drain(out))
	}
}
