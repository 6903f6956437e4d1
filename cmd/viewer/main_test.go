package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/source"
)

func TestReadFramesStopsOnStalledSource(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := source.NewRaw(pr, 4, 4)
	closeSource := closeOnce(src, zaptest.NewLogger(t))

	free := make(chan *images.Frame, 1)
	free <- images.NewFrame(4, 4)
	frames := make(chan *images.Frame, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- readFrames(ctx, src, free, frames) }()

	// Nothing is ever written, so only closing the source can end the read.
	time.Sleep(20 * time.Millisecond)
	cancel()
	closeSource()
	closeSource()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("readFrames still blocked")
	}
}

func TestReadFramesEndsAtEOF(t *testing.T) {
	pr, pw := io.Pipe()
	src := source.NewRaw(pr, 2, 2)

	free := make(chan *images.Frame, 2)
	free <- images.NewFrame(2, 2)
	free <- images.NewFrame(2, 2)
	frames := make(chan *images.Frame, 2)

	go func() {
		_, _ = pw.Write(make([]byte, 2*2*images.BytesPerPixel))
		pw.Close()
	}()

	require.NoError(t, readFrames(context.Background(), src, free, frames))
	assert.Len(t, frames, 1)
}
