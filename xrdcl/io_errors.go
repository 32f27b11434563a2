package xrdcl

import "errors"

// ErrWouldBlock is returned by a non-blocking Socket's Read/Write when no
// progress can be made right now; the caller must wait for the
// corresponding readiness event instead of retrying immediately.
var ErrWouldBlock = errors.New("xrdcl: would block")

// ErrSocketClosed is returned by Socket.Read when the peer has performed
// an orderly shutdown of its write side.
var ErrSocketClosed = errors.New("xrdcl: socket closed by peer")
