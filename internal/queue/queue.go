package queue

import "errors"

// Queue is a FIFO queue.
type Queue[E any] struct {
	elements []E
}

func (q *Queue[E]) Push(e E) {
	q.elements = append(q.elements, e)
}

func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

func (q *Queue[E]) Len() int {
	return len(q.elements)
}

var ErrEmpty = errors.New("Queue is empty")

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	e := q.elements[0]
	q.elements = q.elements[1:]
	return e
}

// WorkList is a FIFO queue that holds every element at most once. An element
// can be pushed again after it has been popped.
type WorkList[E comparable] struct {
	q      Queue[E]
	queued map[E]bool
}

// Push enqueues e unless it is already waiting, and reports whether it was
// added.
func (w *WorkList[E]) Push(e E) bool {
	if w.queued[e] {
		return false
	}
	if w.queued == nil {
		w.queued = make(map[E]bool)
	}
	w.queued[e] = true
	w.q.Push(e)
	return true
}

func (w *WorkList[E]) Empty() bool { return w.q.Empty() }
func (w *WorkList[E]) Len() int    { return w.q.Len() }

func (w *WorkList[E]) Pop() E {
	e := w.q.Pop()
	delete(w.queued, e)
	return e
}
