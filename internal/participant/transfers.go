// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package participant

import (
	"os"
	"strings"

	"github.com/nishisan-dev/ntalk/internal/transfer"
)

// pathSpec is one /transfer argument, split on the first ':'. A nickname can
// never contain ':', so the first colon always separates peer from path.
type pathSpec struct {
	peer   string
	path   string
	remote bool // a ':' was present, even with an empty peer
}

func splitPathSpec(tok string) pathSpec {
	if i := strings.IndexByte(tok, ':'); i >= 0 {
		return pathSpec{peer: tok[:i], path: tok[i+1:], remote: true}
	}
	return pathSpec{path: tok}
}

// startTransfer handles the console's /transfer <a> <b>: decide the role
// from which side carries the nick: prefix, open or create the local file,
// register the transfer, and send the matching /receive or /send request to
// the hub. Every validation failure prints a specific console line and
// leaves no transfer (and no file) behind.
func (s *Session) startTransfer(a, b string) {
	first, second := splitPathSpec(a), splitPathSpec(b)

	if first.remote == second.remote {
		s.console.PushLine([]byte("*** Exactly one of the two paths must name a peer (nick:path)."))
		return
	}

	remote, local := first, second
	dir := transfer.Receiving
	if second.remote {
		remote, local = second, first
		dir = transfer.Sending
	}

	switch {
	case remote.peer == "":
		s.console.PushLine([]byte("*** Empty peer nickname."))
		return
	case local.path == "":
		s.console.PushLine([]byte("*** Empty local filename."))
		return
	case remote.path == "":
		s.console.PushLine([]byte("*** Empty remote filename."))
		return
	}

	var file *os.File
	var err error
	if dir == transfer.Receiving {
		file, err = os.OpenFile(local.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			s.console.PushLinef("*** Could not create %s: %v", local.path, err)
			return
		}
	} else {
		file, err = os.Open(local.path)
		if err != nil {
			s.console.PushLinef("*** Could not open %s: %v", local.path, err)
			return
		}
	}

	tr := &transfer.Transfer{
		ID:        s.transfers.NewID(),
		Mode:      s.mode,
		Direction: dir,
		PeerNick:  remote.peer,
		Name:      local.path,
		File:      file,
	}
	s.transfers.Add(tr)
	s.attachSessionLog(tr)

	verb := "receive"
	if dir == transfer.Sending {
		verb = "send"
	}
	s.hub.PushLinef("/%s %s %s %s %s", verb, remote.peer, tr.ID, s.mode, remote.path)
	tr.Log.Info("transfer requested", "direction", dir.String(), "remote_name", remote.path)
}
