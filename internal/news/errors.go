package news

import (
	"errors"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/database"
)

// Errors returned by Service.
var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("admin access required")
	ErrAlreadySubscribed = errors.New("Already subscribed to this category")
	ErrEmptyComment      = errors.New("Comment cannot be empty")
	ErrEmptyReason       = errors.New("Report reason cannot be empty")
	ErrNotFound          = database.ErrNotFound
)

// GenericMessage is shown for failures with no specific user message.
const GenericMessage = "Something went wrong. Please try again."

// LoginRequiredError rejects an anonymous caller. It matches ErrUnauthenticated.
type LoginRequiredError struct {
	Action string
}

func (e *LoginRequiredError) Error() string {
	return "Please login to " + e.Action
}

func (e *LoginRequiredError) Unwrap() error {
	return ErrUnauthenticated
}

func loginRequired(action string) error {
	return &LoginRequiredError{Action: action}
}

// UserMessage maps err to the text a reader sees.
func UserMessage(err error) string {
	var login *LoginRequiredError
	switch {
	case err == nil:
		return ""
	case auth.IsAuthError(err):
		return err.Error()
	case errors.As(err, &login):
		return login.Error()
	case errors.Is(err, ErrAlreadySubscribed),
		errors.Is(err, ErrEmptyComment),
		errors.Is(err, ErrEmptyReason):
		return err.Error()
	case errors.Is(err, ErrUnauthenticated):
		return "Please login to continue"
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to do that"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	default:
		return GenericMessage
	}
}
