package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
)

const reloadDebounceInterval = 100 * time.Millisecond

// Template sets are looked up by priority class. Files in an override
// directory are named <class>.subject.tmpl and <class>.body.tmpl.
const (
	classUrgent  = "urgent"
	classHigh    = "high"
	classDefault = "default"
)

var templateClasses = []string{classUrgent, classHigh, classDefault}

const defaultBody = `Hello {{with .Assignee.Name}}{{.}}{{else}}{{.Assignee.Email}}{{end}},

You have been assigned a new task.

Title:    {{.Task.Title}}
Priority: {{.Task.Priority}}
{{- with .DueDate}}
Due:      {{.}}
{{- end}}
{{- with .Task.Description}}

{{.}}
{{- end}}

Open it at {{.TaskURL}}
`

var defaultSources = map[string][2]string{
	classUrgent:  {"🚨 Urgent: {{.Task.Title}}", defaultBody},
	classHigh:    {"High priority task assigned: {{.Task.Title}}", defaultBody},
	classDefault: {"New task assigned: {{.Task.Title}}", defaultBody},
}

type templateSet struct {
	subject *template.Template
	body    *template.Template
}

// Data is what assignment templates render.
type Data struct {
	Task     *task.Task
	Assignee *user.User
	TaskURL  string
	DueDate  string
}

// Templates renders assignment messages. It is safe for concurrent use and
// can be reloaded from disk while in use.
type Templates struct {
	dir     string
	baseURL string

	mu   sync.RWMutex
	sets map[string]templateSet
}

// NewTemplates loads the built-in templates and, when dir is set, the
// overrides found in dir.
func NewTemplates(dir, baseURL string) (*Templates, error) {
	t := &Templates{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func classOf(p task.Priority) string {
	switch p {
	case task.PriorityUrgent:
		return classUrgent
	case task.PriorityHigh:
		return classHigh
	default:
		return classDefault
	}
}

// Reload re-parses every template. On error the previous templates stay in
// place.
func (t *Templates) Reload() error {
	sets := make(map[string]templateSet, len(templateClasses))
	for _, class := range templateClasses {
		src := defaultSources[class]
		for i, part := range []string{"subject", "body"} {
			if t.dir == "" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(t.dir, class+"."+part+".tmpl"))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read %s %s template: %w", class, part, err)
			}
			src[i] = string(data)
		}
		subject, err := template.New(class + ".subject").Option("missingkey=error").Parse(src[0])
		if err != nil {
			return fmt.Errorf("parse %s subject template: %w", class, err)
		}
		body, err := template.New(class + ".body").Option("missingkey=error").Parse(src[1])
		if err != nil {
			return fmt.Errorf("parse %s body template: %w", class, err)
		}
		sets[class] = templateSet{subject: subject, body: body}
	}

	t.mu.Lock()
	t.sets = sets
	t.mu.Unlock()
	return nil
}

// Render builds the message for one assignee.
func (t *Templates) Render(tk *task.Task, assignee *user.User) (Message, error) {
	t.mu.RLock()
	set := t.sets[classOf(tk.Priority)]
	t.mu.RUnlock()

	data := Data{
		Task:     tk,
		Assignee: assignee,
		TaskURL:  fmt.Sprintf("%s/tasks/%s", t.baseURL, tk.ID),
	}
	if tk.DueDate != nil {
		data.DueDate = tk.DueDate.Format(time.DateOnly)
	}

	var subject, body bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := set.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{
		To:      assignee.Email,
		Subject: strings.Join(strings.Fields(subject.String()), " "),
		Body:    body.String(),
	}, nil
}

// Watch reloads the templates whenever a file in the override directory
// changes, until ctx is done. It returns immediately when no directory is
// configured.
func (t *Templates) Watch(ctx context.Context) error {
	if t.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(t.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch template dir %s: %w", t.dir, err)
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".tmpl") {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounceInterval, func() {
					if err := t.Reload(); err != nil {
						slog.Error("failed to reload mail templates", "dir", t.dir, "error", err)
						return
					}
					slog.Info("mail templates reloaded", "dir", t.dir)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("mail template watcher error", "error", err)
			}
		}
	}()
	return nil
}
