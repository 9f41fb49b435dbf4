package rewriter

// Range is a half-open [Start,End) byte span in chunk-local coordinates.
// Adjacent ranges concatenate to form the output stream.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers zero bytes.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

// Slice returns the bytes of the range within buf. buf must be the same
// backing buffer the range was produced against.
func (r Range) Slice(buf []byte) []byte {
	return buf[r.Start:r.End]
}

// Chunk is a view over a contiguous byte region of the current input
// buffer, tagged with the absolute stream position its first byte occupies.
//
// Any Range handed downstream from a Chunk is a sub-range of that chunk;
// offsets a dispatcher tracks never rewind past the last consumed lexeme's
// end within the chunk that produced it.
type Chunk struct {
	// Bytes is the chunk-local backing buffer. Ranges produced while this
	// chunk was current are offsets into Bytes.
	Bytes []byte

	// StreamOffset is the absolute position of Bytes[0] in the overall
	// input stream, for diagnostics and error messages; dispatch logic
	// itself only ever uses chunk-local coordinates.
	StreamOffset int64

	// LastChunk is true for the final chunk fed before end-of-stream; the
	// tokenizer uses it to decide whether a truncated lexeme at the tail
	// is "blocked, wait for more bytes" or "this is genuinely EOF".
	LastChunk bool
}

// Len returns the number of bytes currently held by the chunk.
func (c *Chunk) Len() int {
	return len(c.Bytes)
}

// Sub returns the bytes the range identifies within this chunk.
func (c *Chunk) Sub(r Range) []byte {
	return r.Slice(c.Bytes)
}
