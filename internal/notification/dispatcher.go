package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskdesk/internal/metrics"
	"github.com/kazz187/taskdesk/internal/pushnotification"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/panicerr"
)

const defaultSendConcurrency = 4

// SendError is the failure to notify one assignee.
type SendError struct {
	UserID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.UserID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// DispatchError aggregates the per-assignee failures of one dispatch.
type DispatchError struct {
	Failures []*SendError
}

func (e *DispatchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d notification(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *DispatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

func (e *DispatchError) FailedUserIDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.UserID
	}
	return ids
}

// Pusher delivers best-effort browser notifications.
type Pusher interface {
	SendToUser(ctx context.Context, userID string, payload *pushnotification.NotificationPayload) (int, error)
}

type Dispatcher struct {
	mailer      Mailer
	templates   *Templates
	pusher      Pusher
	concurrency int
}

func NewDispatcher(mailer Mailer, templates *Templates, pusher Pusher, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultSendConcurrency
	}
	return &Dispatcher{
		mailer:      mailer,
		templates:   templates,
		pusher:      pusher,
		concurrency: concurrency,
	}
}

// Notify sends exactly one email per assignee. Sends run concurrently; all of
// them are attempted and every failure is reported in a *DispatchError.
func (d *Dispatcher) Notify(ctx context.Context, t *task.Task, assignees []*user.User) error {
	failures := make([]*SendError, len(assignees))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(d.concurrency)
	for i, u := range assignees {
		send := panicerr.SafeContext(func(ctx context.Context) error {
			return d.notifyOne(ctx, t, u)
		})
		p.Go(func(ctx context.Context) error {
			if err := send(ctx); err != nil {
				failures[i] = &SendError{UserID: u.ID, Err: err}
			}
			return nil
		})
	}
	// Failures are recorded per slot; Wait is only the barrier.
	_ = p.Wait()

	if failed := compact(failures); len(failed) > 0 {
		return &DispatchError{Failures: failed}
	}
	return nil
}

func (d *Dispatcher) notifyOne(ctx context.Context, t *task.Task, u *user.User) error {
	msg, err := d.templates.Render(t, u)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("email", "error").Inc()
		return err
	}
	id, err := d.mailer.Send(ctx, msg)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("email", "error").Inc()
		return err
	}
	metrics.NotificationsSent.WithLabelValues("email", "ok").Inc()
	slog.DebugContext(ctx, "assignment email sent", "task.id", t.ID, "user.id", u.ID, "mail.id", id)

	if d.pusher == nil {
		return nil
	}
	n, err := d.pusher.SendToUser(ctx, u.ID, &pushnotification.NotificationPayload{
		Title: msg.Subject,
		Body:  t.Title,
		URL:   "/tasks/" + t.ID,
		Tag:   t.ID,
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("push", "error").Inc()
		slog.WarnContext(ctx, "push notification failed", "task.id", t.ID, "user.id", u.ID, "error", err)
		return nil
	}
	if n > 0 {
		metrics.NotificationsSent.WithLabelValues("push", "ok").Add(float64(n))
	}
	return nil
}

func compact(failures []*SendError) []*SendError {
	var out []*SendError
	for _, f := range failures {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

var _ task.Notifier = (*Dispatcher)(nil)
