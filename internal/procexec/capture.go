package procexec

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Source identifies which stream a captured chunk came from.
type Source int

const (
	SourceStdout Source = iota
	SourceStderr
)

func (s Source) String() string {
	if s == SourceStdout {
		return "stdout"
	}
	return "stderr"
}

// Chunk is one captured line of output, timestamped relative to the
// start of the capture.
type Chunk struct {
	Source   Source
	Text     string
	Relative time.Duration // time since the capture started (monotonic)
	Wall     time.Time     // wall-clock time the chunk was received
}

// CaptureBuilder owns the message queue for one subprocess invocation.
// Concurrent writers on the two streams are serialized by a single
// mutex (spec §4.B: "a single non-blocking mutex" — translated here to
// Go's idiomatic sync.Mutex, since Go has no portable non-blocking
// spinlock primitive in the standard library and none of this
// repository's dependencies provide one; see DESIGN.md).
//
// The builder optionally echoes chunks to the host's terminal streams
// as they arrive.
type CaptureBuilder struct {
	mu        sync.Mutex
	chunks    []Chunk
	start     time.Time
	echoOut   io.Writer
	echoErr   io.Writer
}

// NewCaptureBuilder creates a builder. If echoOut/echoErr are non-nil,
// every captured chunk is also written there as it arrives.
func NewCaptureBuilder(echoOut, echoErr io.Writer) *CaptureBuilder {
	return &CaptureBuilder{
		start:   time.Now(),
		echoOut: echoOut,
		echoErr: echoErr,
	}
}

func (b *CaptureBuilder) append(source Source, text string, echo io.Writer) {
	now := time.Now()
	b.mu.Lock()
	b.chunks = append(b.chunks, Chunk{
		Source:   source,
		Text:     text,
		Relative: now.Sub(b.start),
		Wall:     now,
	})
	b.mu.Unlock()

	if echo != nil {
		fmt.Fprintln(echo, text)
	}
}

// StdoutCallback returns an OutputCallback suitable for Options.OnStdout.
func (b *CaptureBuilder) StdoutCallback() OutputCallback {
	return func(line string) { b.append(SourceStdout, line, b.echoOut) }
}

// StderrCallback returns an OutputCallback suitable for Options.OnStderr.
func (b *CaptureBuilder) StderrCallback() OutputCallback {
	return func(line string) { b.append(SourceStderr, line, b.echoErr) }
}

// Chunks returns the captured chunks in arrival order. Within a single
// stream, order matches source order; across streams, interleaving is
// by arrival timestamp. The returned slice must not be mutated by the
// caller; it is only safe to call once no more writes are in flight
// (i.e. after the subprocess has exited and both drainers have
// returned, mirroring the "transfers ownership out only after the
// child exits" rule in spec §5).
func (b *CaptureBuilder) Chunks() []Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Chunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// Run is a convenience wrapper that runs path via Exec with this
// builder wired up as both callbacks.
func (b *CaptureBuilder) Run(ctx context.Context, path string, args []string, dir string) (int, error) {
	return Exec(ctx, path, args, Options{
		Dir:      dir,
		OnStdout: b.StdoutCallback(),
		OnStderr: b.StderrCallback(),
	})
}
