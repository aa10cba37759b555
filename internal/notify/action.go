package notify

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ActionType names the event that triggers a fan-out.
type ActionType string

const (
	ActionNewPost               ActionType = "NEW_POST"
	ActionLike                  ActionType = "LIKE"
	ActionComment               ActionType = "COMMENT"
	ActionNewBestieRequest      ActionType = "NEW_BESTIE_REQUEST"
	ActionBestieRequestAccepted ActionType = "BESTIE_REQUEST_ACCEPTED"
)

var (
	ErrUnknownAction = errors.New("unknown action type")
	ErrInvalidAction = errors.New("invalid action")
)

type Actor struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type PostRef struct {
	ID      uint   `json:"id"`
	OwnerID uint   `json:"ownerId"`
	Preview string `json:"preview,omitempty"`
}

type CommentRef struct {
	ID      uint   `json:"id,omitempty"`
	OwnerID uint   `json:"ownerId,omitempty"`
	Preview string `json:"preview,omitempty"`
}

type UserRef struct {
	ID uint `json:"id"`
}

// Action is the descriptor handed to the fan-out. Which references are required
// depends on ActionType. Title, Message and URL optionally override the template.
type Action struct {
	ActionType    ActionType  `json:"actionType"`
	Actor         Actor       `json:"actor"`
	Post          *PostRef    `json:"post,omitempty"`
	Comment       *CommentRef `json:"comment,omitempty"`
	ParentComment *CommentRef `json:"parentComment,omitempty"`
	TargetUser    *UserRef    `json:"targetUser,omitempty"`

	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Validate checks that the references needed by the action type are present.
func (a Action) Validate() error {
	if a.Actor.ID == 0 {
		return fmt.Errorf("%w: actor id is required", ErrInvalidAction)
	}
	switch a.ActionType {
	case ActionNewPost, ActionLike:
		if a.Post == nil || a.Post.ID == 0 {
			return fmt.Errorf("%w: %s requires a post", ErrInvalidAction, a.ActionType)
		}
	case ActionComment:
		if a.Post == nil || a.Post.ID == 0 {
			return fmt.Errorf("%w: %s requires a post", ErrInvalidAction, a.ActionType)
		}
		if a.Comment == nil {
			return fmt.Errorf("%w: %s requires a comment", ErrInvalidAction, a.ActionType)
		}
	case ActionNewBestieRequest, ActionBestieRequestAccepted:
		if a.TargetUser == nil || a.TargetUser.ID == 0 {
			return fmt.Errorf("%w: %s requires a target user", ErrInvalidAction, a.ActionType)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.ActionType)
	}
	return nil
}

// Preview shortens s to at most n runes, marking the cut with "...".
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
