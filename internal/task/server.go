package task

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

const maxBodyBytes = 1 << 20

type Server struct {
	repo      Repository
	workflow  *CreateWorkflow
	validator *Validator
	events    event.Publisher
	now       func() time.Time
}

func NewServer(repo Repository, workflow *CreateWorkflow, validator *Validator, events event.Publisher) *Server {
	if events == nil {
		events = event.Discard
	}
	return &Server{
		repo:      repo,
		workflow:  workflow,
		validator: validator,
		events:    events,
		now:       time.Now,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Post("/tasks", s.CreateTask)
	r.Get("/tasks", s.ListTasks)
	r.Get("/tasks/{taskId}", s.GetTask)
	r.Patch("/tasks/{taskId}/status", s.UpdateTaskStatus)
	r.Post("/tasks/{taskId}/comments", s.AddComment)
	r.Get("/dashboard", s.Dashboard)
}

type taskResponse struct {
	Task *Task `json:"task"`
}

type tasksResponse struct {
	Tasks []*Task `json:"tasks"`
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Invalid request body", err)
		return
	}
	t, err := s.workflow.Create(ctx, identity.ActorFromContext(ctx), payload)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, taskResponse{Task: t})
}

func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{Assignee: q.Get("assignee")}
	if raw := q.Get("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		filter.Status = st
	}
	if !actor.IsAdmin() {
		if filter.Assignee != "" && filter.Assignee != actor.ID {
			cerr.SetJSONResponse(ctx, tasksResponse{Tasks: []*Task{}})
			return
		}
		filter.Assignee = actor.ID
	}

	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	cerr.SetJSONResponse(ctx, tasksResponse{Tasks: tasks})
}

// visibleTask loads the task from the URL and checks that actor may see it.
func (s *Server) visibleTask(r *http.Request, actor identity.Actor) (*Task, error) {
	t, err := s.repo.Get(r.Context(), chi.URLParam(r, "taskId"))
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || t.CreatedBy == actor.ID || t.IsAssignedTo(actor.ID) {
		return t, nil
	}
	return nil, cerr.NewError(cerr.PermissionDenied, "Task not accessible", nil)
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	t, err := s.visibleTask(r, actor)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), taskResponse{Task: t})
}

// checkWritable reports whether actor may change t: admins and assignees
// may, a creator who is not assigned only sees the task.
func checkWritable(t *Task, actor identity.Actor) error {
	if actor.IsAdmin() || t.IsAssignedTo(actor.ID) {
		return nil
	}
	if t.CreatedBy == actor.ID {
		return cerr.NewError(cerr.PermissionDenied, "Only admins and assignees can update tasks", nil)
	}
	return cerr.NewError(cerr.PermissionDenied, "Task not accessible", nil)
}

// audience is everyone besides admins who may see events about t.
func audience(t *Task) []string {
	return append([]string{t.CreatedBy}, t.AssignedTo...)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Invalid request body", err)
		return
	}
	st, err := ParseStatus(req.Status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var from Status
	t, err := s.repo.Mutate(ctx, chi.URLParam(r, "taskId"), func(t *Task) error {
		if err := checkWritable(t, actor); err != nil {
			return err
		}
		from = t.Status
		t.Status = st
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if from != st {
		s.events.Publish(event.New(event.TaskStatusChanged, t.ID, actor.ID, audience(t),
			map[string]string{"from": string(from), "to": string(st)}))
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}

type addCommentRequest struct {
	Text string `json:"text"`
}

func (s *Server) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	var req addCommentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Invalid request body", err)
		return
	}
	text, err := s.validator.ValidateComment(req.Text)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.repo.Mutate(ctx, chi.URLParam(r, "taskId"), func(t *Task) error {
		if err := checkWritable(t, actor); err != nil {
			return err
		}
		now := s.now()
		t.Comments = append(t.Comments, Comment{Text: text, Author: actor.ID, Timestamp: now})
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.events.Publish(event.New(event.TaskCommented, t.ID, actor.ID, audience(t), nil))
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, taskResponse{Task: t})
}

type DashboardSummary struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"byStatus"`
	ByPriority map[Priority]int `json:"byPriority"`
	Overdue    int              `json:"overdue"`
}

// Summarize counts tasks by status and priority. Every known status and
// priority is present in the result, zero or not.
func Summarize(tasks []*Task, now time.Time) DashboardSummary {
	sum := DashboardSummary{
		Total:      len(tasks),
		ByStatus:   map[Status]int{StatusToDo: 0, StatusInProgress: 0, StatusCompleted: 0},
		ByPriority: map[Priority]int{PriorityLow: 0, PriorityNormal: 0, PriorityHigh: 0, PriorityUrgent: 0},
	}
	for _, t := range tasks {
		sum.ByStatus[t.Status]++
		sum.ByPriority[t.Priority]++
		if t.Overdue(now) {
			sum.Overdue++
		}
	}
	return sum
}

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	var filter ListFilter
	if !actor.IsAdmin() {
		filter.Assignee = actor.ID
	}
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, Summarize(tasks, s.now()))
}
