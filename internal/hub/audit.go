// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"

	"github.com/nishisan-dev/ntalk/internal/config"
)

// AuditLog is the optional rotating protocol-event log: who connected, who
// was killed, who negotiated a transfer and with what filename. It never
// records chat-line text or transferred file contents.
type AuditLog struct {
	path            string
	maxSize         int64
	pgzipThreshold  int64
	file            *os.File
	written         int64
}

// event is one audit line, JSON-encoded.
type event struct {
	Time string `json:"time"`
	Kind string `json:"kind"`
	Peer string `json:"peer,omitempty"`
	Nick string `json:"nick,omitempty"`
	Info string `json:"info,omitempty"`
}

// NewAuditLog opens (creating/appending) the log file at cfg.Path. A nil
// *AuditLog with a nil error means auditing is disabled (cfg.Path == "").
func NewAuditLog(cfg config.AuditLogCfg) (*AuditLog, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stating audit log: %w", err)
	}

	return &AuditLog{
		path:           cfg.Path,
		maxSize:        cfg.MaxSizeBytesRaw,
		pgzipThreshold: cfg.PgzipThresholdRaw,
		file:           f,
		written:        info.Size(),
	}, nil
}

// Log appends one audit event as a JSON line.
func (a *AuditLog) Log(kind, peer, nick, info string) error {
	if a == nil {
		return nil
	}
	line, err := json.Marshal(event{
		Time: time.Now().UTC().Format(time.RFC3339Nano),
		Kind: kind,
		Peer: peer,
		Nick: nick,
		Info: info,
	})
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	line = append(line, '\n')
	n, err := a.file.Write(line)
	a.written += int64(n)
	if err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// NeedsRotation reports whether the current file has grown past maxSize —
// the housekeeping sweep checks this so rotation runs on the single
// event-loop goroutine alongside the rest of registry maintenance.
func (a *AuditLog) NeedsRotation() bool {
	return a != nil && a.maxSize > 0 && a.written >= a.maxSize
}

// Rotate closes the current file, compresses it to "<path>.<unixnano>.gz"
// (gzip, or pgzip in parallel when the closed file is at or above
// pgzipThreshold), deletes the uncompressed original, and reopens path fresh.
func (a *AuditLog) Rotate() error {
	if a == nil {
		return nil
	}
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("closing audit log for rotation: %w", err)
	}

	archived := fmt.Sprintf("%s.%d.gz", a.path, time.Now().UnixNano())
	if err := compressFile(a.path, archived, a.written >= a.pgzipThreshold); err != nil {
		return fmt.Errorf("compressing rotated audit log: %w", err)
	}
	if err := os.Remove(a.path); err != nil {
		return fmt.Errorf("removing rotated audit log source: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("reopening audit log after rotation: %w", err)
	}
	a.file = f
	a.written = 0
	return nil
}

// compressFile gzips src into dst, using pgzip's parallel writer when
// parallel is set (large rotated files) and the plain klauspost/compress
// gzip writer otherwise.
func compressFile(src, dst string, parallel bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	var gw io.WriteCloser
	if parallel {
		pw := pgzip.NewWriter(out)
		pw.SetConcurrency(1<<20, 4)
		gw = pw
	} else {
		gw = gzip.NewWriter(out)
	}

	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// Close flushes and closes the underlying file.
func (a *AuditLog) Close() error {
	if a == nil {
		return nil
	}
	return a.file.Close()
}
