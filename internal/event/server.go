package event

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

const (
	subscriberBuffer  = 64
	heartbeatInterval = 25 * time.Second
)

type Server struct {
	bus       *Bus
	heartbeat time.Duration
}

func NewServer(bus *Bus) *Server {
	return &Server{bus: bus, heartbeat: heartbeatInterval}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/events", s.SubscribeEvents)
}

// SubscribeEvents streams task events as server-sent events. The optional
// "type" query parameter is a comma separated list of event types to keep.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := identity.RequireAuthenticated(r)
	if !ok {
		return
	}
	rc := http.NewResponseController(w)

	typeFilter := make(map[Type]struct{})
	for _, raw := range strings.Split(r.URL.Query().Get("type"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			typeFilter[Type(raw)] = struct{}{}
		}
	}

	subID, ch := s.bus.Subscribe(subscriberBuffer)
	defer s.bus.Unsubscribe(subID)

	cerr.SetStreamed(ctx)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				return
			}
			if len(typeFilter) > 0 {
				if _, match := typeFilter[e.Type]; !match {
					continue
				}
			}
			if !e.VisibleTo(actor) {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
