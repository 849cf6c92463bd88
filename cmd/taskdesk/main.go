package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/user"
	userrepo "github.com/kazz187/taskdesk/internal/user/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/storage"
)

var (
	app = kingpin.New("taskdesk", "Administration tool for the taskdesk backend")

	userCmd = app.Command("user", "Manage the user directory")

	userAddCmd   = userCmd.Command("add", "Add a user")
	userAddEmail = userAddCmd.Arg("email", "Email address").Required().String()
	userAddID    = userAddCmd.Flag("id", "User ID (generated when empty)").String()
	userAddName  = userAddCmd.Flag("name", "Display name").String()
	userAddRole  = userAddCmd.Flag("role", "Role").Default("member").Enum("admin", "member")

	userListCmd = userCmd.Command("list", "List users")

	userDeactivateCmd = userCmd.Command("deactivate", "Deactivate a user")
	userDeactivateID  = userDeactivateCmd.Arg("id", "User ID").Required().String()

	userActivateCmd = userCmd.Command("activate", "Reactivate a user")
	userActivateID  = userActivateCmd.Arg("id", "User ID").Required().String()

	tokenCmd    = app.Command("token", "Issue an identity token for a directory user")
	tokenUserID = tokenCmd.Arg("id", "User ID").Required().String()
	tokenTTL    = tokenCmd.Flag("ttl", "Token lifetime").Default("24h").Duration()

	taskCmd          = app.Command("tasks", "List tasks")
	taskListStatus   = taskCmd.Flag("status", "Filter by status").Enum(string(task.StatusToDo), string(task.StatusInProgress), string(task.StatusCompleted))
	taskListAssignee = taskCmd.Flag("assignee", "Filter by assignee").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fatal("failed to load env: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, env.StorageEnv.StorageConfig())
	if err != nil {
		fatal("%v", err)
	}
	defer closeStore()
	users := userrepo.NewYAMLRepository(store)

	switch command {
	case userAddCmd.FullCommand():
		err = addUser(ctx, users)
	case userListCmd.FullCommand():
		err = listUsers(ctx, users)
	case userDeactivateCmd.FullCommand():
		err = setUserStatus(ctx, users, *userDeactivateID, user.StatusInactive)
	case userActivateCmd.FullCommand():
		err = setUserStatus(ctx, users, *userActivateID, user.StatusActive)
	case tokenCmd.FullCommand():
		err = issueToken(ctx, env, users)
	case taskCmd.FullCommand():
		err = listTasks(ctx, taskrepo.NewYAMLRepository(store))
	}
	if err != nil {
		closeStore()
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func addUser(ctx context.Context, users user.Repository) error {
	u, err := user.NewServer(users).Register(ctx, user.CreateUserRequest{
		UserID: *userAddID,
		Email:  *userAddEmail,
		Name:   *userAddName,
		Role:   *userAddRole,
	})
	if err != nil {
		return err
	}
	color.Green("added %s (%s, %s)", u.ID, u.Email, u.Role)
	return nil
}

func listUsers(ctx context.Context, users user.Repository) error {
	list, err := users.List(ctx)
	if err != nil {
		return err
	}
	tbl := newTable("ID", "EMAIL", "NAME", "ROLE", "STATUS")
	for _, u := range list {
		status := colored(string(u.Status), color.New(color.FgGreen))
		if !u.Active() {
			status = colored(string(u.Status), color.New(color.FgRed))
		}
		tbl.add(plain(u.ID), plain(u.Email), plain(u.Name), plain(string(u.Role)), status)
	}
	return tbl.render(os.Stdout)
}

func setUserStatus(ctx context.Context, users user.Repository, id string, status user.Status) error {
	u, err := users.Get(ctx, id)
	if err != nil {
		return err
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	if err := users.Update(ctx, u); err != nil {
		return err
	}
	color.Green("%s is now %s", u.ID, u.Status)
	return nil
}

func issueToken(ctx context.Context, env *config.Env, users user.Repository) error {
	u, err := users.Get(ctx, *tokenUserID)
	if err != nil {
		return err
	}
	if !u.Active() {
		return fmt.Errorf("user %s is inactive", u.ID)
	}
	tok, err := identity.NewVerifier(env.JWTSecret, env.JWTIssuer).Issue(identity.Actor{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}, *tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func listTasks(ctx context.Context, tasks task.Repository) error {
	list, err := tasks.List(ctx, task.ListFilter{
		Status:   task.Status(*taskListStatus),
		Assignee: *taskListAssignee,
	})
	if err != nil {
		return err
	}
	now := time.Now()
	red := color.New(color.FgRed)
	tbl := newTable("ID", "PRIORITY", "STATUS", "DUE", "TITLE")
	for _, t := range list {
		priority := plain(string(t.Priority))
		switch t.Priority {
		case task.PriorityUrgent:
			priority.color = red
		case task.PriorityHigh:
			priority.color = color.New(color.FgYellow)
		}
		due := plain("-")
		if t.DueDate != nil {
			due = plain(t.DueDate.Format(time.DateOnly))
			if t.Overdue(now) {
				due.color = red
			}
		}
		tbl.add(plain(t.ID), priority, plain(string(t.Status)), due, plain(t.Title))
	}
	return tbl.render(os.Stdout)
}
