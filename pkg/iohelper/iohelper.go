// Package iohelper provides bounded reads of HTTP response bodies.
package iohelper

import (
	"errors"
	"fmt"
	"io"

	"github.com/oobkit/oobkit/pkg/defaults"
)

// ErrBodyTooLarge is returned by ReadBodyStrict when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("iohelper: body exceeds size limit")

// ReadBodyStrict reads at most maxSize bytes and fails with ErrBodyTooLarge
// if more are available, so a truncated document is never handed to a parser.
func ReadBodyStrict(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, maxSize)
	}
	return data, nil
}

// DrainAndClose discards up to defaults.BufferSmall unread bytes and
// closes r if it is a ReadCloser, so the keep-alive connection can go back
// to the pool. It always returns nil.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(r, defaults.BufferSmall))

	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
