package testutil

import "errors"

// ErrSimulated is returned by fakes to drive error paths.
var ErrSimulated = errors.New("simulated failure")
