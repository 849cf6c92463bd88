package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Name:      "tasks_created_total",
			Help:      "Tasks persisted by the creation workflow",
		},
		[]string{"priority"},
	)
	WorkflowFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Name:      "task_workflow_failures_total",
			Help:      "Creation workflow runs that ended in Failed, by the state they failed in",
		},
		[]string{"state", "code"},
	)
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Name:      "notifications_sent_total",
			Help:      "Assignment notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Name:      "rate_limiter_requests_total",
			Help:      "Total requests seen by the rate limiter",
		},
		[]string{"method"},
	)
	RateLimitBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Name:      "rate_limiter_blocked_total",
			Help:      "Total requests blocked by the rate limiter",
		},
		[]string{"method"},
	)
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Name:      "events_dropped_total",
			Help:      "Task events dropped because a subscriber buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(TasksCreated, WorkflowFailures, NotificationsSent, RateLimitRequests, RateLimitBlocked, EventsDropped)
}
