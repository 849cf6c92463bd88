package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/validation"
)

type Server struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(repo Repository) *Server {
	return &Server{
		repo:     repo,
		validate: validation.New(),
		now:      time.Now,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/users", s.ListUsers)
	r.Get("/users/me", s.Me)
	r.Post("/users", s.CreateUser)
	r.Patch("/users/{userId}/status", s.UpdateUserStatus)
}

type userResponse struct {
	User *User `json:"user"`
}

type usersResponse struct {
	Users []*User `json:"users"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.RequireAdmin(r); !ok {
		return
	}
	users, err := s.repo.List(r.Context())
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), usersResponse{Users: users})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	u, err := s.repo.Get(r.Context(), actor.ID)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), userResponse{User: u})
}

type CreateUserRequest struct {
	UserID string `json:"userId" validate:"omitempty,max=128,docid"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"max=200"`
	Role   string `json:"role" validate:"required,oneof=admin member"`
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := identity.RequireAdmin(r); !ok {
		return
	}
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Invalid request body", err)
		return
	}
	u, err := s.Register(ctx, req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, userResponse{User: u})
}

// Register validates req and stores a new active directory entry.
func (s *Server) Register(ctx context.Context, req CreateUserRequest) (*User, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, requestError(err)
	}
	id := req.UserID
	if id == "" {
		id = ulid.Make().String()
	}
	now := s.now()
	u := &User{
		ID:        id,
		Email:     req.Email,
		Name:      strings.TrimSpace(req.Name),
		Role:      identity.Role(req.Role),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (s *Server) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := identity.RequireAdmin(r); !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Invalid request body", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		cerr.SetJSONError(ctx, requestError(err))
		return
	}

	u, err := s.repo.Get(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	u.Status = Status(req.Status)
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, userResponse{User: u})
}

func requestError(err error) error {
	var fields []string
	for _, fe := range validation.Fields(err) {
		fields = append(fields, fe.Field)
	}
	return cerr.NewErrorWithDetails(cerr.InvalidArgument, "Invalid request", err, fields)
}
