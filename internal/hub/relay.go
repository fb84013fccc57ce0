// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"strings"

	"github.com/nishisan-dev/ntalk/internal/transfer"
)

// relayLine builds the wire line the hub re-emits on a relay target's
// channel for one of /receive, /send, /refuse, /accept. The
// originator's nickname always replaces the first argument; /accept
// additionally gets the originator's own address spliced in as the host
// field, between the target's own id and its listening port, since the
// accepting peer only ever sends its port — the hub fills in the address
// it already knows from that peer's connection.
//
// Building this by string concatenation means there is no literal byte
// count to get wrong: len(line) is always derived from the strings actually
// written.
func relayLine(cmdName string, origin *Peer, args [][]byte) []byte {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, "/"+cmdName, origin.Nickname)

	if cmdName == "accept" {
		// args: [from, id-initiator, id-target, port]
		parts = append(parts, string(args[1]), string(args[2]), origin.Host(), string(args[3]))
	} else {
		for _, a := range args[1:] {
			parts = append(parts, string(a))
		}
	}

	return []byte(strings.Join(parts, " ") + "\n")
}

// bounceRefuse sends a synthetic /refuse back to origin when the nickname it
// relayed a transfer command to is not currently registered. The bounced
// line names the nickname origin was trying to reach (args[0] of its
// original command) as the "peer" field, since from origin's point of view
// that unreachable nickname is the one refusing. The echoed id is the one
// origin's own transfer table knows: the request id for /receive, /send and
// /refuse, but the accepter's own id (third argument) for /accept.
func bounceRefuse(origin *Peer, cmdName string, args [][]byte, reason transfer.Reason) {
	id := args[1]
	if cmdName == "accept" {
		id = args[2]
	}
	origin.Chan.PushLinef("/refuse %s %s %s", string(args[0]), string(id), reason)
}
