package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/validation"
)

const defaultLookupConcurrency = 8

// InvalidAssigneesError lists the requested assignees that do not resolve to
// an active directory entry.
type InvalidAssigneesError struct {
	IDs []string
}

func (e *InvalidAssigneesError) Error() string {
	return fmt.Sprintf("invalid assignees: %s", strings.Join(e.IDs, ", "))
}

// Resolver validates assignee lists against the directory.
type Resolver struct {
	repo        Repository
	concurrency int
}

func NewResolver(repo Repository, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = defaultLookupConcurrency
	}
	return &Resolver{repo: repo, concurrency: concurrency}
}

// Dedupe drops empty and repeated ids, keeping first occurrences in order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type lookup struct {
	user  *User
	valid bool
}

// Resolve looks every distinct id up exactly once and returns the users in
// first-occurrence order. It is all-or-nothing: any malformed, unknown or
// inactive id fails the whole call with *InvalidAssigneesError. Lookups run
// in parallel and the decision is taken only after all of them have
// finished. Ids that the directory resolves to an already returned user are
// collapsed into it.
func (r *Resolver) Resolve(ctx context.Context, ids []string) ([]*User, error) {
	ids = Dedupe(ids)
	if len(ids) == 0 {
		return nil, &InvalidAssigneesError{}
	}

	results := make([]lookup, len(ids))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(r.concurrency)
	for i, id := range ids {
		if !validation.ValidID(id) {
			continue
		}
		p.Go(func(ctx context.Context) error {
			u, err := r.repo.Get(ctx, id)
			if err != nil {
				if cerr.IsCode(err, cerr.NotFound) {
					return nil
				}
				return fmt.Errorf("lookup %s: %w", id, err)
			}
			results[i] = lookup{user: u, valid: u.Active()}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var invalid []string
	users := make([]*User, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for i, res := range results {
		if !res.valid {
			invalid = append(invalid, ids[i])
			continue
		}
		if _, dup := seen[res.user.ID]; dup {
			continue
		}
		seen[res.user.ID] = struct{}{}
		users = append(users, res.user)
	}
	if len(invalid) > 0 {
		return nil, &InvalidAssigneesError{IDs: invalid}
	}
	return users, nil
}
