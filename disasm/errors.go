package disasm

import "errors"

// ErrDisassemble wraps every structural failure encountered while decoding
// an object file: truncated streams, duplicate sections, unrecognized tags,
// and bad operand bytes all surface through this sentinel.
var ErrDisassemble = errors.New("disasm: malformed object file")
