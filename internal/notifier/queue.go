package notifier

// Queue is the per-viewer ordered set of claim notifications. Insertion
// order is arrival order; views read newest first. Exactly one entry
// exists per claim id — Insert is idempotent.
//
// The queue itself is not safe for concurrent use; all mutation happens on
// the Center's event loop.
type Queue struct {
	order []string
	byID  map[string]*Notification
}

func NewQueue() *Queue {
	return &Queue{
		byID: make(map[string]*Notification),
	}
}

// Insert adds the notification unless its id is already present. Reports
// whether a new entry was created.
func (q *Queue) Insert(n *Notification) bool {
	if _, ok := q.byID[n.ID]; ok {
		return false
	}
	q.byID[n.ID] = n
	q.order = append(q.order, n.ID)
	return true
}

func (q *Queue) Get(id string) (*Notification, bool) {
	n, ok := q.byID[id]
	return n, ok
}

// Remove deletes the notification. Reports whether it was present.
func (q *Queue) Remove(id string) bool {
	if _, ok := q.byID[id]; !ok {
		return false
	}
	delete(q.byID, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

func (q *Queue) Len() int {
	return len(q.order)
}

// IDs returns the claim ids in arrival order.
func (q *Queue) IDs() []string {
	ids := make([]string, len(q.order))
	copy(ids, q.order)
	return ids
}

// NewestFirst returns the notifications in reverse arrival order, the
// order the view renders them in.
func (q *Queue) NewestFirst() []*Notification {
	out := make([]*Notification, 0, len(q.order))
	for i := len(q.order) - 1; i >= 0; i-- {
		out = append(out, q.byID[q.order[i]])
	}
	return out
}
