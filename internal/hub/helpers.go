// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"fmt"

	"github.com/nishisan-dev/ntalk/internal/bytequeue"
)

// pushWhoList writes the authenticated-nickname listing (a one-line count
// header, then one nickname per line) onto out. Shared by
// the console and client /who handlers, which differ only in destination.
func pushWhoList(reg *Registry, out *bytequeue.Queue) {
	names := reg.WhoList()
	out.PushLine([]byte(fmt.Sprintf("*** %d user(s) connected:", len(names))))
	for _, n := range names {
		out.PushLine([]byte(n))
	}
}

const notAuthenticated = "*** You must /connect before doing that."
