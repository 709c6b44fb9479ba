package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type request struct {
	ID string
	Hz float64
}

func TestQueue_DrainReturnsPushOrder(t *testing.T) {
	q := New[request]()
	q.Push(request{ID: "a"})
	q.Push(request{ID: "b"}, request{ID: "c"})

	assert.Equal(t, 3, q.Len())
	got := q.Drain()
	assert.Equal(t, []request{{ID: "a"}, {ID: "b"}, {ID: "c"}}, got)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_DrainedSliceNotReused(t *testing.T) {
	q := New[request]()
	q.Push(request{ID: "a"})
	first := q.Drain()

	q.Push(request{ID: "b"})
	assert.Equal(t, "a", first[0].ID)
}

func TestQueue_RemoveFunc(t *testing.T) {
	q := New[request]()
	q.Push(request{ID: "a", Hz: 1}, request{ID: "b", Hz: 2}, request{ID: "a", Hz: 3})

	removed := q.RemoveFunc(func(r request) bool { return r.ID == "a" })

	assert.Equal(t, []request{{ID: "a", Hz: 1}, {ID: "a", Hz: 3}}, removed)
	assert.Equal(t, []request{{ID: "b", Hz: 2}}, q.Drain())
}

func TestQueue_RemoveFuncNoMatch(t *testing.T) {
	q := New[request]()
	q.Push(request{ID: "a"})

	assert.Empty(t, q.RemoveFunc(func(r request) bool { return false }))
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[request]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(request{ID: "x"})
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(), 100)
}
