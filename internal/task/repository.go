package task

import "context"

type ListFilter struct {
	Status   Status
	Assignee string
}

func (f ListFilter) Match(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Assignee != "" && !t.IsAssignedTo(f.Assignee) {
		return false
	}
	return true
}

// Repository persists tasks. Create is the single write of the creation
// workflow and must not be retried by callers.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter ListFilter) ([]*Task, error)
	// Mutate loads the task, applies fn and stores the result atomically
	// with respect to other Mutate calls on the same id. fn may run more
	// than once and an error from it aborts without writing.
	Mutate(ctx context.Context, id string, fn func(*Task) error) (*Task, error)
}
