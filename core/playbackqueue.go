package orchestration

import (
	"sync"
	"time"

	"github.com/koscakluka/vox-core/core/audio"
)

// playbackQueue buffers synthesized reply audio for one turn and hands it to
// the playback worker strictly in arrival order. The queue paces chunk
// hand-off by each chunk's estimated duration so drain detection approximates
// real sink progress; the sink itself plays in real time regardless.
type playbackQueue struct {
	mu sync.Mutex

	encodingInfo audio.EncodingInfo

	chunks    [][]byte
	playhead  int
	allLoaded bool
	flushed   bool
	stopped   bool

	updateSignal  chan struct{}
	interrupted   chan struct{}
	interruptOnce sync.Once
}

func newPlaybackQueue(encodingInfo audio.EncodingInfo) *playbackQueue {
	return &playbackQueue{
		encodingInfo: encodingInfo,
		updateSignal: make(chan struct{}, 1),
		interrupted:  make(chan struct{}),
	}
}

func (q *playbackQueue) Add(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
	q.signalUpdate()
}

// AllLoaded marks that no further chunks will arrive. The queue drains once
// the playhead catches up.
func (q *playbackQueue) AllLoaded() {
	q.mu.Lock()
	q.allLoaded = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Flush drops every chunk not yet handed to the worker and ends iteration.
// Chunks already handed off are beyond reach; the caller clears the sink.
func (q *playbackQueue) Flush() {
	q.mu.Lock()
	if q.flushed || q.stopped {
		q.mu.Unlock()
		return
	}
	q.flushed = true
	q.playhead = len(q.chunks)
	q.mu.Unlock()

	q.interrupt()
}

func (q *playbackQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	q.interrupt()
}

func (q *playbackQueue) Flushed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushed
}

// Drained reports whether every queued chunk was handed off and played to
// estimated completion without interruption.
func (q *playbackQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.allLoaded && !q.flushed && !q.stopped && q.playhead == len(q.chunks)
}

// Chunks iterates queued audio in FIFO order, blocking while the queue is
// open but empty. Iteration ends when the queue drains, is flushed, stopped,
// or the consumer breaks out.
func (q *playbackQueue) Chunks(yield func(audio []byte) bool) {
	for {
		chunk, ok := q.consumeNextChunk()
		if !ok {
			if q.doneWaiting() {
				return
			}
			select {
			case <-q.updateSignal:
			case <-q.interrupted:
				return
			}
			continue
		}

		if !yield(chunk) {
			return
		}
		if !q.waitChunkPlayed(chunk) {
			return
		}
	}
}

func (q *playbackQueue) consumeNextChunk() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.flushed || q.stopped || q.playhead >= len(q.chunks) {
		return nil, false
	}

	chunk := q.chunks[q.playhead]
	q.playhead++
	return chunk, true
}

func (q *playbackQueue) doneWaiting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped || q.flushed || (q.allLoaded && q.playhead >= len(q.chunks))
}

// waitChunkPlayed blocks for the chunk's estimated playback duration so the
// queue tracks roughly where the sink is. A flush or stop cuts the wait
// short.
func (q *playbackQueue) waitChunkPlayed(chunk []byte) bool {
	duration := chunkDuration(chunk, q.encodingInfo)
	if duration <= 0 {
		return true
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-q.interrupted:
		return false
	}
}

func (q *playbackQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}

func (q *playbackQueue) interrupt() {
	q.interruptOnce.Do(func() { close(q.interrupted) })
}

func chunkDuration(chunk []byte, encodingInfo audio.EncodingInfo) time.Duration {
	bytesPerSecond := encodingInfo.BytesPerSecond()
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(len(chunk)) / float64(bytesPerSecond) * float64(time.Second))
}
