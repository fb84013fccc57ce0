// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package policy

import "testing"

func TestForbidAllowRoundTrip(t *testing.T) {
	f := NewForbidSet()
	if err := f.Forbid("bob"); err != nil {
		t.Fatalf("Forbid: %v", err)
	}
	if !f.Contains("bob") {
		t.Fatalf("expected bob forbidden")
	}
	if err := f.Allow("bob"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if f.Contains("bob") {
		t.Fatalf("expected bob no longer forbidden")
	}
}

func TestForbidDuplicate(t *testing.T) {
	f := NewForbidSet()
	_ = f.Forbid("bob")
	if err := f.Forbid("bob"); err != ErrAlreadyForbidden {
		t.Fatalf("err = %v, want ErrAlreadyForbidden", err)
	}
}

func TestAllowMissing(t *testing.T) {
	f := NewForbidSet()
	if err := f.Allow("bob"); err != ErrNotForbidden {
		t.Fatalf("err = %v, want ErrNotForbidden", err)
	}
}

func TestValidFilename(t *testing.T) {
	cases := map[string]bool{
		"":          false,
		".hidden":   false,
		"a/b":       false,
		"report.pdf": true,
		"b.bin":     true,
	}
	for name, want := range cases {
		if got := ValidFilename(name); got != want {
			t.Errorf("ValidFilename(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestValidNickname(t *testing.T) {
	cases := map[string]bool{
		"":        false,
		"a:b":     false,
		"alice":   true,
		"bob99":   true,
	}
	for name, want := range cases {
		if got := ValidNickname(name); got != want {
			t.Errorf("ValidNickname(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestModeRoundTrip(t *testing.T) {
	if s := Stream.String(); s != "secure" {
		t.Fatalf("Stream.String() = %q", s)
	}
	if d := Datagram.String(); d != "fast" {
		t.Fatalf("Datagram.String() = %q", d)
	}
	if m, ok := ParseMode("secure"); !ok || m != Stream {
		t.Fatalf("ParseMode(secure) = %v,%v", m, ok)
	}
	if m, ok := ParseMode("fast"); !ok || m != Datagram {
		t.Fatalf("ParseMode(fast) = %v,%v", m, ok)
	}
	if _, ok := ParseMode("bogus"); ok {
		t.Fatalf("expected ParseMode to fail on bogus")
	}
}
