package pushnotification

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/pushsubscription"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	sender   *Sender
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, sender *Sender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		sender:   sender,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/push/vapid-public-key", s.GetVapidPublicKey)
	r.Post("/push/subscriptions", s.RegisterPushSubscription)
	r.Delete("/push/subscriptions", s.UnregisterPushSubscription)
	r.Post("/push/test", s.SendTestNotification)
}

func (s *Server) GetVapidPublicKey(w http.ResponseWriter, r *http.Request) {
	if s.vapidEnv.VAPIDPublicKey == "" {
		cerr.SetNewJSONError(r.Context(), cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(r.Context(), map[string]string{"publicKey": s.vapidEnv.VAPIDPublicKey})
}

type registerRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dhKey"`
	AuthKey   string `json:"authKey"`
}

func (s *Server) RegisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Invalid request body", err)
		return
	}
	var missing []string
	for field, v := range map[string]string{"endpoint": req.Endpoint, "p256dhKey": req.P256dhKey, "authKey": req.AuthKey} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		cerr.SetJSONError(ctx, cerr.NewErrorWithDetails(cerr.InvalidArgument, "Missing required fields", nil, missing))
		return
	}

	// Re-registering an endpoint replaces it, possibly for a different user.
	if existing, err := s.repo.FindByEndpoint(ctx, req.Endpoint); err == nil {
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	} else if !cerr.IsCode(err, cerr.NotFound) {
		cerr.SetJSONError(ctx, err)
		return
	}

	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		UserID:    actor.ID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, map[string]any{"subscription": sub})
}

type unregisterRequest struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) UnregisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	var req unregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		cerr.SetJSONError(ctx, cerr.NewErrorWithDetails(cerr.InvalidArgument, "Missing required fields", err, []string{"endpoint"}))
		return
	}
	sub, err := s.repo.FindByEndpoint(ctx, req.Endpoint)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if sub.UserID != actor.ID && !actor.IsAdmin() {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "push subscription not found", nil)
		return
	}
	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
}

func (s *Server) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	delivered, err := s.sender.SendToUser(ctx, actor.ID, &NotificationPayload{
		Title: "taskdesk",
		Body:  "Push notifications are working!",
	})
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.Internal, "Internal server error", err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]int{"delivered": delivered})
}
