package engine

import "errors"

var (
	errKeyTooLong       = errors.New("key exceeds 65535 bytes")
	errValueTooLong     = errors.New("value exceeds 65535 bytes")
	errInvalidUTF8Key   = errors.New("key is not valid UTF-8")
	errInvalidUTF8Value = errors.New("string value is not valid UTF-8")
	errUnknownTypeTag   = errors.New("unknown record type tag")
	errBadFixedWidth    = errors.New("fixed-width value has wrong payload length")
	errExactKeyMismatch = errors.New("record at indexed offset does not match the indexed key")
)
