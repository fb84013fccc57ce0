// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package transfer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nishisan-dev/ntalk/internal/eventloop"
	"github.com/nishisan-dev/ntalk/internal/policy"
)

// waitForAllDone blocks until every listed transfer has posted its
// TransferDone, returning the observed errors keyed by id. Collecting them
// together avoids discarding one transfer's completion while waiting on the
// other's.
func waitForAllDone(t *testing.T, loop *eventloop.Loop, ids ...string) map[string]error {
	t.Helper()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	errs := make(map[string]error, len(ids))
	deadline := time.After(5 * time.Second)
	for len(errs) < len(ids) {
		select {
		case ev := <-loop.Events():
			if ev.Kind == eventloop.TransferDone && want[ev.ID] {
				errs[ev.ID] = ev.Err
			}
		case <-deadline:
			t.Fatalf("timed out waiting for TransferDone of %v (got %v)", ids, errs)
		}
	}
	return errs
}

func waitForRendezvous(t *testing.T, loop *eventloop.Loop, id string) eventloop.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-loop.Events():
			if ev.Kind == eventloop.TransferRendezvous && ev.ID == id {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for TransferRendezvous(%s)", id)
		}
	}
}

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0666); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// TestStreamTransferRoundTrip exercises a full target+initiator stream
// rendezvous: the target listens, the initiator dials, and bytes flow
// source -> sink unmodified.
func TestStreamTransferRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 200)
	srcPath := writeTempFile(t, dir, "src.bin", content)
	dstPath := filepath.Join(dir, "dst.bin")

	srcFile, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	dstFile, err := os.Create(dstPath)
	if err != nil {
		t.Fatalf("create dest: %v", err)
	}

	loop := eventloop.New(8)
	defer loop.Close()

	ln, _, port, err := Listen(policy.Stream)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	target := &Transfer{ID: "target1", Mode: policy.Stream, Direction: Sending, File: srcFile}
	target.Listener = ln
	target.BeginRendezvous(loop)

	conn, _, err := Dial(policy.Stream, "127.0.0.1", strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	initiator := &Transfer{ID: "initiator1", Mode: policy.Stream, Direction: Receiving, File: dstFile, Conn: conn}

	ev := waitForRendezvous(t, loop, "target1")
	if ev.Err != nil {
		t.Fatalf("target rendezvous: %v", ev.Err)
	}
	target.CompleteRendezvous(ev)

	target.BeginBulkCopy(context.Background(), loop, 0)
	initiator.BeginBulkCopy(context.Background(), loop, 0)

	errs := waitForAllDone(t, loop, "target1")
	if errs["target1"] != nil {
		t.Fatalf("target copy: %v", errs["target1"])
	}
	// The sender signals completion by closing its socket; the session does
	// this by destroying the finished transfer.
	target.closeAll()
	if errs = waitForAllDone(t, loop, "initiator1"); errs["initiator1"] != nil {
		t.Fatalf("initiator copy: %v", errs["initiator1"])
	}

	dstFile.Close()
	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round-tripped content mismatch: got %d bytes, want %d", len(got), len(content))
	}
}

// TestDatagramTransferExactMultiple covers the exact-multiple-of-1023
// boundary case: the receiver must terminate correctly on the final
// 0x01-headed empty-payload datagram with no bytes dropped.
func TestDatagramTransferExactMultiple(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0xAB}, datagramPayload*3) // exact multiple of 1023
	srcPath := writeTempFile(t, dir, "src.bin", content)
	dstPath := filepath.Join(dir, "dst.bin")

	srcFile, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	dstFile, err := os.Create(dstPath)
	if err != nil {
		t.Fatalf("create dest: %v", err)
	}

	loop := eventloop.New(8)
	defer loop.Close()

	// Target plays role Receiving here (mirrors the /send flow): its
	// rendezvous socket learns the initiator's address from the first real
	// data datagram, since the peer (Sending) never bootstraps.
	_, udpLn, port, err := Listen(policy.Datagram)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	target := &Transfer{ID: "target2", Mode: policy.Datagram, Direction: Receiving, File: dstFile}
	target.RendezvousPC = udpLn
	target.BeginRendezvous(loop)
	rev := waitForRendezvous(t, loop, "target2")
	if rev.Err != nil {
		t.Fatalf("target rendezvous: %v", rev.Err)
	}
	target.CompleteRendezvous(rev)

	_, udpConn, err := Dial(policy.Datagram, "127.0.0.1", strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	initiator := &Transfer{ID: "initiator2", Mode: policy.Datagram, Direction: Sending, File: srcFile}
	initiator.AttachDatagram(udpConn)

	target.BeginBulkCopy(context.Background(), loop, 0)
	initiator.BeginBulkCopy(context.Background(), loop, 0)

	errs := waitForAllDone(t, loop, "initiator2", "target2")
	for id, err := range errs {
		if err != nil {
			t.Fatalf("%s copy: %v", id, err)
		}
	}

	dstFile.Close()
	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("datagram round-trip mismatch: got %d bytes, want %d", len(got), len(content))
	}
}
