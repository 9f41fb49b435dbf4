package rewriter

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Settings configures a Rewriter. Encoding and Controller are read once at
// construction; Logger, MaxTokenLength/Strict, and MaxMemory govern ongoing
// behavior.
type Settings struct {
	// Encoding names the document's charset (a WHATWG label, e.g. "utf-8",
	// "windows-1251", "shift_jis"). Empty defaults to "utf-8".
	Encoding string

	// Controller decides what to capture and runs content handlers.
	// Nil defaults to PassthroughController (verbatim passthrough).
	Controller TransformController

	// Logger receives structured diagnostics at Debug level. Nil installs
	// a discarding logger.
	Logger *logrus.Logger

	// MaxTokenLength bounds how large a single in-progress lexeme (an
	// attribute value, a comment, ...) may grow before the overflow policy
	// below applies. Zero means unbounded.
	MaxTokenLength int
	// Strict, when MaxTokenLength is exceeded, aborts the stream with
	// ErrMemoryLimitExceeded instead of force-flushing a best-effort split.
	Strict bool

	// MaxMemory bounds the retained input buffer (the span from the
	// earliest byte still referenced by the tokenizer or dispatcher to the
	// most recently written byte). Zero means unbounded. Exceeding it
	// aborts the stream with ErrMemoryLimitExceeded.
	MaxMemory int
}

// Rewriter is a streaming HTML rewriter: Write feeds input incrementally,
// End signals end-of-stream, and output (the rewritten document) is
// written incrementally to the io.Writer given to NewRewriter as handlers
// resolve each token.
type Rewriter struct {
	tok  *Tokenizer
	disp *Dispatcher

	buf          []byte
	streamOffset int64
	ended        bool

	maxMemory int
	logger    *logrus.Logger
}

// NewRewriter constructs a Rewriter writing rewritten output to out.
func NewRewriter(out io.Writer, settings Settings) (*Rewriter, error) {
	enc, err := resolveEncoding(settings.Encoding)
	if err != nil {
		return nil, err
	}
	logger := settings.Logger
	if logger == nil {
		logger = newDiscardLogger()
	}
	controller := settings.Controller
	if controller == nil {
		controller = PassthroughController{}
	}

	disp := NewDispatcher(controller, out, enc, logger)
	tok := NewTokenizer(disp, logger)
	tok.SetLimits(settings.MaxTokenLength, settings.Strict)
	if disp.DocSettings().RequiresLexing() {
		// Document-level text/comments/doctype can only ever be seen by
		// starting in FullLexer mode: TagScanner mode has no path that
		// recognizes "<!doctype" or a bare comment preceding the first
		// element.
		tok.StartInLexMode()
	}

	return &Rewriter{
		tok:       tok,
		disp:      disp,
		maxMemory: settings.MaxMemory,
		logger:    logger,
	}, nil
}

// Write feeds p as the next slice of input. It never blocks on a partial
// lexeme at the tail of p — the Tokenizer simply suspends until more bytes
// (a later Write, or End) arrive.
func (r *Rewriter) Write(p []byte) (int, error) {
	if r.ended {
		return 0, errEndOfStreamReached()
	}
	r.buf = append(r.buf, p...)
	if err := r.pump(false); err != nil {
		return 0, err
	}
	return len(p), nil
}

// End signals that no further input will arrive and flushes any buffered
// tail through the Dispatcher: trailing plain text becomes a final text
// lexeme, and unfinished markup is written out as raw bytes.
func (r *Rewriter) End() error {
	if r.ended {
		return errEndOfStreamReached()
	}
	r.ended = true
	return r.pump(true)
}

func (r *Rewriter) pump(last bool) error {
	chunk := &Chunk{Bytes: r.buf, StreamOffset: r.streamOffset, LastChunk: last}
	r.disp.SetChunk(chunk)

	_, _, err := r.tok.Feed(chunk)
	if err != nil {
		return err
	}
	if err := r.disp.Err(); err != nil {
		return err
	}

	r.compact()

	if r.maxMemory > 0 && len(r.buf) > r.maxMemory {
		return errMemoryLimitExceeded(len(r.buf), r.maxMemory)
	}
	return nil
}

// compact discards the buffer prefix neither the Tokenizer nor the
// Dispatcher reference any longer, shifting both components' retained
// offsets to match.
func (r *Rewriter) compact() {
	low := r.tok.LowWaterMark()
	if d := r.disp.LowWaterMark(); d < low {
		low = d
	}
	if low <= 0 {
		return
	}
	r.buf = append(r.buf[:0], r.buf[low:]...)
	r.tok.Rebase(low)
	r.disp.Rebase(low)
	r.streamOffset += int64(low)
}
