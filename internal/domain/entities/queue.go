package entities

// Queue is a FIFO of play items. It is not safe for concurrent use; the
// owning session guards it.
type Queue struct {
	items []*PlayItem
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{items: make([]*PlayItem, 0)}
}

// Push appends an item and returns its 1-indexed position
func (q *Queue) Push(item *PlayItem) int {
	q.items = append(q.items, item)
	return len(q.items)
}

// PushFront puts an item back at the head
func (q *Queue) PushFront(item *PlayItem) {
	q.items = append([]*PlayItem{item}, q.items...)
}

// Pop removes and returns the head, or nil if empty
func (q *Queue) Pop() *PlayItem {
	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return head
}

// Peek returns the head without removing it
func (q *Queue) Peek() *PlayItem {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Clear drops all items and returns how many were removed
func (q *Queue) Clear() int {
	n := len(q.items)
	q.items = make([]*PlayItem, 0)
	return n
}

// Len returns the number of queued items
func (q *Queue) Len() int {
	return len(q.items)
}

// IsEmpty checks if the queue has no items
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// Items returns a copy of the queued items in play order
func (q *Queue) Items() []*PlayItem {
	result := make([]*PlayItem, len(q.items))
	copy(result, q.items)
	return result
}
