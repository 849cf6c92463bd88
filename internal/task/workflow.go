package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/metrics"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

type State int

const (
	StateAuthorizingActor State = iota
	StateValidatingInput
	StateResolvingAssignees
	StatePersisting
	StateNotifying
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateAuthorizingActor:   "authorizing_actor",
	StateValidatingInput:    "validating_input",
	StateResolvingAssignees: "resolving_assignees",
	StatePersisting:         "persisting",
	StateNotifying:          "notifying",
	StateCompleted:          "completed",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// AssigneeResolver resolves assignee ids to active directory users, all or
// nothing.
type AssigneeResolver interface {
	Resolve(ctx context.Context, ids []string) ([]*user.User, error)
}

// Notifier tells every assignee about a newly created task.
type Notifier interface {
	Notify(ctx context.Context, t *Task, assignees []*user.User) error
}

// failedRecipients is implemented by notifier errors that know which users
// were not reached.
type failedRecipients interface {
	FailedUserIDs() []string
}

type CreateWorkflow struct {
	repo      Repository
	resolver  AssigneeResolver
	notifier  Notifier
	validator *Validator
	events    event.Publisher
	now       func() time.Time
	newID     func() string
}

type WorkflowOption func(*CreateWorkflow)

func WithPublisher(p event.Publisher) WorkflowOption {
	return func(w *CreateWorkflow) { w.events = p }
}

func WithClock(now func() time.Time) WorkflowOption {
	return func(w *CreateWorkflow) { w.now = now }
}

func WithIDGenerator(newID func() string) WorkflowOption {
	return func(w *CreateWorkflow) { w.newID = newID }
}

func NewCreateWorkflow(repo Repository, resolver AssigneeResolver, notifier Notifier, validator *Validator, opts ...WorkflowOption) *CreateWorkflow {
	w := &CreateWorkflow{
		repo:      repo,
		resolver:  resolver,
		notifier:  notifier,
		validator: validator,
		events:    event.Discard,
		now:       time.Now,
		newID:     func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Create runs one task creation for actor with the raw JSON payload. Every
// returned error is a *cerr.Error carrying the HTTP status of the failure.
//
// Once the task is persisted it is kept: if notifying fails, the stored task
// is returned together with the error.
func (w *CreateWorkflow) Create(ctx context.Context, actor identity.Actor, payload []byte) (*Task, error) {
	w.enter(ctx, StateAuthorizingActor)
	if !actor.IsAdmin() {
		return nil, w.fail(ctx, StateAuthorizingActor,
			cerr.NewError(cerr.PermissionDenied, "Only admins can create tasks", nil))
	}

	w.enter(ctx, StateValidatingInput)
	var in CreateTaskInput
	if body := bytes.TrimSpace(payload); len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			return nil, w.fail(ctx, StateValidatingInput,
				cerr.NewError(cerr.InvalidArgument, "Invalid request body", err))
		}
	}
	draft, err := w.validator.ValidateCreate(&in)
	if err != nil {
		return nil, w.fail(ctx, StateValidatingInput, err)
	}

	w.enter(ctx, StateResolvingAssignees)
	assignees, err := w.resolver.Resolve(ctx, draft.AssignedTo)
	if err != nil {
		var invalid *user.InvalidAssigneesError
		if errors.As(err, &invalid) {
			return nil, w.fail(ctx, StateResolvingAssignees,
				cerr.NewErrorWithDetails(cerr.InvalidArgument, "Invalid assignees", err, invalid.IDs))
		}
		return nil, w.fail(ctx, StateResolvingAssignees,
			cerr.NewError(cerr.Internal, "Internal server error", err))
	}

	w.enter(ctx, StatePersisting)
	now := w.now()
	t := &Task{
		ID:          w.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		Status:      StatusToDo,
		AssignedTo:  make([]string, 0, len(assignees)),
		DueDate:     draft.DueDate,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []Comment{},
	}
	for _, u := range assignees {
		t.AssignedTo = append(t.AssignedTo, u.ID)
	}
	clog.AddAttribute(ctx, "task.id", t.ID)
	if err := w.repo.Create(ctx, t); err != nil {
		return nil, w.fail(ctx, StatePersisting,
			cerr.NewError(cerr.Internal, "Internal server error", err))
	}
	metrics.TasksCreated.WithLabelValues(string(t.Priority)).Inc()
	w.events.Publish(event.New(event.TaskCreated, t.ID, actor.ID, t.AssignedTo,
		map[string]string{"priority": string(t.Priority), "title": t.Title}))

	w.enter(ctx, StateNotifying)
	if err := w.notifier.Notify(ctx, t, assignees); err != nil {
		attrs := []any{"task.id", t.ID, "error", err}
		var fr failedRecipients
		if errors.As(err, &fr) {
			attrs = append(attrs, "failed_user_ids", fr.FailedUserIDs())
		}
		slog.ErrorContext(ctx, "task persisted but assignees were not notified", attrs...)
		w.events.Publish(event.New(event.TaskNotificationFailed, t.ID, actor.ID, nil, nil))
		return t, w.fail(ctx, StateNotifying,
			cerr.NewError(cerr.Internal, "Internal server error", err))
	}

	w.enter(ctx, StateCompleted)
	slog.InfoContext(ctx, "task created", "task.id", t.ID, "priority", string(t.Priority), "assignees", len(t.AssignedTo))
	return t, nil
}

func (w *CreateWorkflow) enter(ctx context.Context, s State) {
	clog.AddAttribute(ctx, "workflow.state", s.String())
}

func (w *CreateWorkflow) fail(ctx context.Context, at State, err error) error {
	clog.AddAttributes(ctx, map[string]any{
		"workflow.state":       StateFailed.String(),
		"workflow.failed_step": at.String(),
	})
	metrics.WorkflowFailures.WithLabelValues(at.String(), cerr.CodeOf(err).String()).Inc()
	return err
}
