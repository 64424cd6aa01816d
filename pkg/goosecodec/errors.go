package goosecodec

import "errors"

// ErrDecode is wrapped by every structural decode failure. The decoder
// never panics on malformed input — it always returns an error satisfying
// errors.Is(err, ErrDecode).
var ErrDecode = errors.New("goosecodec: malformed frame")

// ErrBufferTooSmall is returned by Encode when the destination buffer
// cannot hold the encoded frame.
var ErrBufferTooSmall = errors.New("goosecodec: destination buffer too small")
