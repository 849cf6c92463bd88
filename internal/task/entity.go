package task

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Comment struct {
	Text      string    `yaml:"text" json:"text"`
	Author    string    `yaml:"author" json:"author"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

type Task struct {
	ID          string     `yaml:"id" json:"taskId"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Priority    Priority   `yaml:"priority" json:"priority"`
	Status      Status     `yaml:"status" json:"status"`
	AssignedTo  []string   `yaml:"assigned_to" json:"assignedTo"`
	DueDate     *time.Time `yaml:"due_date,omitempty" json:"dueDate,omitempty"`
	CreatedBy   string     `yaml:"created_by" json:"createdBy"`
	CreatedAt   time.Time  `yaml:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `yaml:"updated_at" json:"updatedAt"`
	Comments    []Comment  `yaml:"comments" json:"comments"`
}

func (t *Task) IsAssignedTo(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// Overdue reports whether the task has a due date before now and is not
// completed yet.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != StatusCompleted && t.DueDate.Before(now)
}
