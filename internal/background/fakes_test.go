package background

import (
	"errors"
	"sync"

	"surface-tracker/internal/video"
)

var errDecoderGone = errors.New("decoder crashed")

type fakeFrame struct {
	index int
}

func (f *fakeFrame) Index() int         { return f.index }
func (f *fakeFrame) Timestamp() float64 { return float64(f.index) / 30 }
func (f *fakeFrame) Close() error       { return nil }

// fakeOpener hands out readers over n frames and records every read.
type fakeOpener struct {
	n      int
	onRead func(index int)
	failAt  int
	fatalAt int

	mu    sync.Mutex
	reads []int
	opens int
}

func newFakeOpener(n int) *fakeOpener {
	return &fakeOpener{n: n, failAt: -1, fatalAt: -1}
}

func (o *fakeOpener) Open() (video.Reader, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	return &fakeReader{opener: o}, nil
}

func (o *fakeOpener) readIndices() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.reads...)
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

type fakeReader struct {
	opener *fakeOpener
}

func (r *fakeReader) Read(index int) (video.Frame, error) {
	o := r.opener
	if index == o.failAt {
		return nil, errors.Join(video.ErrFrameUnavailable, errors.New("corrupt packet"))
	}
	if index == o.fatalAt {
		return nil, errDecoderGone
	}
	o.mu.Lock()
	o.reads = append(o.reads, index)
	hook := o.onRead
	o.mu.Unlock()
	if hook != nil {
		hook(index)
	}
	return &fakeFrame{index: index}, nil
}

func (r *fakeReader) Close() error { return nil }
