package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
	"github.com/kazz187/taskdesk/pkg/validation"
)

const (
	tasksPrefix       = "tasks"
	maxMutateAttempts = 10
)

type YAMLRepository struct {
	storage storage.Storage
	locks   *keyedMutex
}

var _ task.Repository = (*YAMLRepository)(nil)

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s, locks: newKeyedMutex()}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return r.write(ctx, t)
}

func errNotFound() error {
	return cerr.NewError(cerr.NotFound, "task not found", nil)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	if !validation.ValidID(id) {
		return nil, errNotFound()
	}
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	return decode(id, data)
}

func decode(id string, data []byte) (*task.Task, error) {
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "Internal server error", fmt.Errorf("failed to unmarshal task %s: %w", id, err))
	}
	return &t, nil
}

// List returns the matching tasks ordered by id, which for ULIDs is creation
// order.
func (r *YAMLRepository) List(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	var tasks []*task.Task
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		if filter.Match(&t) {
			tasks = append(tasks, &t)
		}
	}
	return tasks, nil
}

// Mutate serializes writers of one task inside this process and uses
// conditional writes against the storage version to detect writers in
// other processes, retrying fn on a fresh copy after each conflict.
func (r *YAMLRepository) Mutate(ctx context.Context, id string, fn func(*task.Task) error) (*task.Task, error) {
	if !validation.ValidID(id) {
		return nil, errNotFound()
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	for range maxMutateAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, version, err := r.storage.ReadVersion(ctx, path(id))
		if err != nil {
			return nil, cerr.WrapStorageReadError("task", err)
		}
		t, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		if err := fn(t); err != nil {
			return nil, err
		}
		out, err := yaml.Marshal(t)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "Internal server error", fmt.Errorf("failed to marshal task: %w", err))
		}
		err = r.storage.WriteIfVersion(ctx, path(id), out, version)
		switch {
		case err == nil:
			return t, nil
		case errors.Is(err, storage.ErrConflict):
			continue
		case errors.Is(err, storage.ErrNotFound):
			return nil, cerr.WrapStorageReadError("task", err)
		default:
			return nil, cerr.WrapStorageWriteError("task", err)
		}
	}
	return nil, cerr.NewError(cerr.Aborted, "Task is being modified concurrently, please retry", nil)
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "Internal server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}
