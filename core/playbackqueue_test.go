package orchestration

import (
	"bytes"
	"testing"
	"time"

	"github.com/koscakluka/vox-core/core/audio"
)

func TestPlaybackQueueYieldsChunksInOrder(t *testing.T) {
	queue := newPlaybackQueue(audio.GetDefaultEncodingInfo())
	queue.Add([]byte{1})
	queue.Add([]byte{2})
	queue.Add([]byte{3})
	queue.AllLoaded()

	var played [][]byte
	queue.Chunks(func(chunk []byte) bool {
		played = append(played, chunk)
		return true
	})

	if len(played) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(played))
	}
	for i, want := range [][]byte{{1}, {2}, {3}} {
		if !bytes.Equal(played[i], want) {
			t.Errorf("chunk %d out of order: got %v, want %v", i, played[i], want)
		}
	}
	if !queue.Drained() {
		t.Error("expected queue to report drained")
	}
}

func TestPlaybackQueueWaitsForLateChunks(t *testing.T) {
	queue := newPlaybackQueue(audio.GetDefaultEncodingInfo())

	played := make(chan []byte, 2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Chunks(func(chunk []byte) bool {
			played <- chunk
			return true
		})
	}()

	queue.Add([]byte{1})
	select {
	case chunk := <-played:
		if !bytes.Equal(chunk, []byte{1}) {
			t.Fatalf("unexpected chunk %v", chunk)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first chunk")
	}

	queue.Add([]byte{2})
	queue.AllLoaded()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queue to drain")
	}
	if !queue.Drained() {
		t.Error("expected queue to report drained")
	}
}

func TestPlaybackQueueFlushDropsQueuedAudio(t *testing.T) {
	queue := newPlaybackQueue(audio.GetDefaultEncodingInfo())
	// Large chunks so the pacing wait is still in progress when the flush
	// lands.
	chunk := make([]byte, 32000)
	queue.Add(chunk)
	queue.Add(chunk)
	queue.Add(chunk)

	played := make(chan []byte, 3)
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Chunks(func(chunk []byte) bool {
			played <- chunk
			return true
		})
	}()

	select {
	case <-played:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first chunk")
	}

	queue.Flush()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for flushed queue to end iteration")
	}

	if !queue.Flushed() {
		t.Error("expected queue to report flushed")
	}
	if queue.Drained() {
		t.Error("flushed queue must not report drained")
	}
	if len(played) != 0 {
		t.Errorf("expected queued chunks to be dropped, got %d more", len(played))
	}
}

func TestPlaybackQueueStopsWhenConsumerBreaks(t *testing.T) {
	queue := newPlaybackQueue(audio.GetDefaultEncodingInfo())
	queue.Add([]byte{1})
	queue.Add([]byte{2})
	queue.AllLoaded()

	var seen int
	queue.Chunks(func([]byte) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("expected iteration to stop after first chunk, saw %d", seen)
	}
}
