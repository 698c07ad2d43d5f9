package inference

// queue is a FIFO used by the breadth-first searches.
type queue[T any] struct {
	items []T
	head  int
}

func (q *queue[T]) push(v T) {
	q.items = append(q.items, v)
}

func (q *queue[T]) pop() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	return v, true
}

func (q *queue[T]) empty() bool {
	return q.head >= len(q.items)
}
