// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"io"
)

// ErrBodyTooLarge is returned by readers created with LimitBody once the limit is exceeded.
var ErrBodyTooLarge = errors.New("response body too large")

// MaxBodySize is the largest upstream response body the providers are willing to decode.
const MaxBodySize = 1 << 20

// LimitReader returns a Reader that reads from r
// but stops with err after n bytes.
// The underlying implementation is a *LimitedReader.
func LimitReader(r io.Reader, n int64, err error) io.Reader { return &LimitedReader{r, n, err} }

// LimitBody wraps an upstream body so that reading more than MaxBodySize bytes fails with ErrBodyTooLarge.
func LimitBody(r io.Reader) io.Reader { return LimitReader(r, MaxBodySize+1, ErrBodyTooLarge) }

// A LimitedReader reads from R but limits the amount of
// data returned to just N bytes. Each call to Read
// updates N to reflect the new amount remaining.
// Read returns Err when N <= 0 or EOF when the underlying R returns EOF.
type LimitedReader struct {
	R   io.Reader // underlying reader
	N   int64     // max bytes remaining
	Err error     // the error to return when N <= 0
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N <= 0 {
		return 0, l.Err
	}
	if int64(len(p)) > l.N {
		p = p[0:l.N]
	}
	n, err = l.R.Read(p)
	l.N -= int64(n)
	return
}
