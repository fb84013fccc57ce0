// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package linechannel

import (
	"bytes"
	"testing"
)

func TestChannelPullPush(t *testing.T) {
	c := New('\n')
	if _, err := c.Fill(bytes.NewReader([]byte("hello\nworld\n"))); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	l1, ok := c.PullLine()
	if !ok || string(l1.Payload()) != "hello" {
		t.Fatalf("l1 = %q ok=%v", l1.Payload(), ok)
	}
	l2, ok := c.PullLine()
	if !ok || string(l2.Payload()) != "world" {
		t.Fatalf("l2 = %q ok=%v", l2.Payload(), ok)
	}

	c.PushLinef("** %s connected.", "alice")
	var out bytes.Buffer
	if _, err := c.Drain(&out); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got, want := out.String(), "** alice connected.\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestChannelPrefixReserve(t *testing.T) {
	c := New('\n')
	c.In.Put([]byte("hi there\n"))

	line, ok := c.PullLineReserve(len("alice: "))
	if !ok {
		t.Fatalf("expected a line")
	}
	copy(line.Buf, "alice: ")
	if got, want := string(line.Buf), "alice: hi there"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
