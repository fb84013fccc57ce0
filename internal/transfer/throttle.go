// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package transfer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxBurstSize caps the largest single reservation a ThrottledWriter will
// make, so a configured limit doesn't force one multi-megabyte wait.
const maxBurstSize = 256 * 1024

// minBurstSize keeps one whole framed datagram (header plus datagramPayload)
// within a single reservation, so Write never splits a datagram in two.
const minBurstSize = 1 + datagramPayload

// ThrottledWriter paces writes to bytesPerSec using a token-bucket limiter.
// It is the bandwidth cap applied to a transfer's bulk copy, configured per
// session via ClientConfig.Transfer.MaxBytesPerSec.
type ThrottledWriter struct {
	w       io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

// NewThrottledWriter returns w unchanged if bytesPerSec <= 0 (unlimited),
// otherwise a writer that paces its underlying writes to that rate.
func NewThrottledWriter(ctx context.Context, w io.Writer, bytesPerSec int64) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}

	burst := int(bytesPerSec)
	if burst > maxBurstSize {
		burst = maxBurstSize
	}
	if burst < minBurstSize {
		burst = minBurstSize
	}

	return &ThrottledWriter{
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		ctx:     ctx,
	}
}

// Write paces p through the limiter, splitting it into burst-sized pieces
// when it exceeds the configured burst.
func (tw *ThrottledWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := len(p)
		if chunk > tw.limiter.Burst() {
			chunk = tw.limiter.Burst()
		}
		if err := tw.limiter.WaitN(tw.ctx, chunk); err != nil {
			return total, err
		}
		n, err := tw.w.Write(p[:chunk])
		total += n
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}
