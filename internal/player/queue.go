package player

import (
	"fmt"
	"sync"

	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/shared"
)

// Queue is the client-only list of tracks played when remote "next" has nowhere to go.
//
// Insertion order is significant. It is never persisted.
type Queue struct {
	mu    sync.Mutex
	items []models.Track
}

// NewQueue creates an empty [Queue].
func NewQueue() *Queue {
	return &Queue{items: []models.Track{}}
}

// Enqueue appends track.
func (q *Queue) Enqueue(track models.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, track)
}

// Dequeue removes and returns the track at index, shifting later entries down.
func (q *Queue) Dequeue(index int) (models.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.Track{}, shared.ErrQueueEmpty
	}
	if index < 0 || index >= len(q.items) {
		return models.Track{}, fmt.Errorf("%w: queue index %d out of range [0, %d)", shared.ErrInvalidArgument, index, len(q.items))
	}

	track := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	return track, nil
}

// PeekFirst returns the head of the queue without removing it.
func (q *Queue) PeekFirst() (models.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.Track{}, false
	}
	return q.items[0], true
}

// Items returns a copy of the queued tracks in order.
func (q *Queue) Items() []models.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Track, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}
