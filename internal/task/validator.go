package task

import (
	"fmt"
	"html"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/validation"
)

const dateLayout = time.DateOnly

// CreateTaskInput is the request body of task creation.
type CreateTaskInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description,omitempty" validate:"max=5000"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	DueDate     string   `json:"dueDate,omitempty" validate:"omitempty,duedate"`
	AssignedTo  []string `json:"assignedTo" validate:"required,min=1,dive,max=128"`
}

// Draft is a validated and sanitized creation request.
type Draft struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	AssignedTo  []string
}

type Validator struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func NewValidator() *Validator {
	v := validation.New()
	if err := v.RegisterValidation("duedate", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		_, err := ParseDueDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register duedate validation: %v", err))
	}
	return &Validator{validate: v, policy: bluemonday.StrictPolicy()}
}

// ParseDueDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Sanitize strips markup from user supplied text. Script and style bodies are
// dropped together with their tags; entities are decoded so plain text such
// as "a < b" survives unchanged. Entities are decoded before stripping, so
// escaped markup at any nesting depth is removed too.
func (v *Validator) Sanitize(s string) string {
	// Each round that changes s removes markup, so len(s)+1 rounds suffice.
	for range len(s) + 1 {
		s = decodeEntities(s)
		clean := html.UnescapeString(v.policy.Sanitize(s))
		if clean == s {
			return strings.TrimSpace(s)
		}
		s = clean
	}
	return strings.TrimSpace(angleBrackets.Replace(s))
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

func decodeEntities(s string) string {
	for range len(s) {
		d := html.UnescapeString(s)
		if d == s {
			break
		}
		s = d
	}
	return s
}

// ValidateCreate sanitizes in in place and checks it. Missing required fields
// take precedence over format errors.
func (v *Validator) ValidateCreate(in *CreateTaskInput) (*Draft, error) {
	in.Title = v.Sanitize(in.Title)
	in.Description = v.Sanitize(in.Description)
	in.DueDate = strings.TrimSpace(in.DueDate)
	in.Priority = Priority(strings.ToLower(strings.TrimSpace(string(in.Priority))))
	assignees := in.AssignedTo[:0:0]
	for _, id := range in.AssignedTo {
		if id = strings.TrimSpace(id); id != "" {
			assignees = append(assignees, id)
		}
	}
	in.AssignedTo = assignees

	if err := v.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	d := &Draft{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		AssignedTo:  in.AssignedTo,
	}
	if d.Priority == "" {
		d.Priority = PriorityNormal
	}
	if in.DueDate != "" {
		due, _ := ParseDueDate(in.DueDate)
		d.DueDate = &due
	}
	return d, nil
}

// ValidateComment returns the sanitized comment text.
func (v *Validator) ValidateComment(text string) (string, error) {
	text = v.Sanitize(text)
	if text == "" {
		return "", cerr.NewErrorWithDetails(cerr.InvalidArgument, "Missing required fields", nil, []string{"text"})
	}
	if len(text) > 5000 {
		return "", cerr.NewErrorWithDetails(cerr.InvalidArgument, "Invalid text", nil, []string{"text"})
	}
	return text, nil
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", cerr.NewErrorWithDetails(cerr.InvalidArgument, "Invalid status", nil, []string{"status"})
	}
	return st, nil
}

func validationError(err error) error {
	var missing, invalid []string
	for _, fe := range validation.Fields(err) {
		field, _, _ := strings.Cut(fe.Field, "[")
		switch fe.Tag {
		case "required", "min":
			missing = appendOnce(missing, field)
		default:
			invalid = appendOnce(invalid, field)
		}
	}
	if len(missing) > 0 {
		return cerr.NewErrorWithDetails(cerr.InvalidArgument, "Missing required fields", err, missing)
	}
	if len(invalid) > 0 {
		return cerr.NewErrorWithDetails(cerr.InvalidArgument, "Invalid "+invalid[0], err, invalid)
	}
	return cerr.NewError(cerr.InvalidArgument, "Invalid request", err)
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
