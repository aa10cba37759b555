package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"peek/backend/internal/models"
	"strings"
)

// PreviewLength is how many runes of a caption or comment a push body quotes.
const PreviewLength = 50

var (
	ErrNotAllowed = errors.New("action not allowed")
	ErrNotFound   = errors.New("referenced record not found")
)

// Directory reads the stored records a client-submitted action is checked against.
// The Find methods return nil and no error when the record does not exist.
type Directory interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindPeek(ctx context.Context, id uint) (*models.Peek, error)
	FindComment(ctx context.Context, id uint) (*models.Comment, error)
	// EdgeStatus is the status of the edge ownerID -> bestieID, or "" when there is none.
	EdgeStatus(ctx context.Context, ownerID, bestieID uint) (models.BestieStatus, error)
}

// Authorize rebuilds an action submitted by callerID from stored records. Only the
// action type and record ids are taken from the client; owners, previews and the
// actor name come from the database. Request and accept events need the matching
// bestie edge. Title and message overrides survive only when every recipient is an
// accepted bestie of the caller, and a URL override must be a same-origin path.
func Authorize(ctx context.Context, dir Directory, callerID uint, a Action) (Action, error) {
	a.Actor = Actor{ID: callerID}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}

	caller, err := dir.FindUser(ctx, callerID)
	if err != nil {
		return Action{}, fmt.Errorf("failed to load caller %d: %w", callerID, err)
	}
	if caller == nil {
		return Action{}, fmt.Errorf("%w: unknown caller", ErrNotAllowed)
	}

	out := Action{
		ActionType: a.ActionType,
		Actor:      Actor{ID: callerID, Username: caller.DisplayName()},
	}

	switch a.ActionType {
	case ActionNewPost, ActionLike, ActionComment:
		peek, err := dir.FindPeek(ctx, a.Post.ID)
		if err != nil {
			return Action{}, fmt.Errorf("failed to load peek %d: %w", a.Post.ID, err)
		}
		if peek == nil {
			return Action{}, fmt.Errorf("%w: peek %d", ErrNotFound, a.Post.ID)
		}
		out.Post = &PostRef{ID: peek.ID, OwnerID: peek.UserID}

		if a.ActionType == ActionNewPost {
			if peek.UserID != callerID {
				return Action{}, fmt.Errorf("%w: peek %d belongs to someone else", ErrNotAllowed, peek.ID)
			}
			caption := peek.Content
			if caption == "" {
				caption = peek.Title
			}
			out.Post.Preview = Preview(caption, PreviewLength)
		}
		if a.ActionType == ActionComment {
			if err := authorizeComment(ctx, dir, &out, a.Comment.ID); err != nil {
				return Action{}, err
			}
		}

	case ActionNewBestieRequest:
		status, err := dir.EdgeStatus(ctx, callerID, a.TargetUser.ID)
		if err != nil {
			return Action{}, fmt.Errorf("failed to read bestie edge: %w", err)
		}
		if status != models.StatusPending {
			return Action{}, fmt.Errorf("%w: no pending request to user %d", ErrNotAllowed, a.TargetUser.ID)
		}
		out.TargetUser = &UserRef{ID: a.TargetUser.ID}

	case ActionBestieRequestAccepted:
		status, err := dir.EdgeStatus(ctx, a.TargetUser.ID, callerID)
		if err != nil {
			return Action{}, fmt.Errorf("failed to read bestie edge: %w", err)
		}
		if status != models.StatusAccepted {
			return Action{}, fmt.Errorf("%w: user %d is not a bestie", ErrNotAllowed, a.TargetUser.ID)
		}
		out.TargetUser = &UserRef{ID: a.TargetUser.ID}
	}

	// A request goes to someone who is not a bestie yet.
	if out.ActionType != ActionNewBestieRequest {
		out.Title = a.Title
		out.Message = a.Message
		out.URL = localPath(a.URL)
	}
	return out, nil
}

// authorizeComment fills the comment and parent refs of a COMMENT action. The
// comment must be the caller's and sit on the action's peek.
func authorizeComment(ctx context.Context, dir Directory, out *Action, commentID uint) error {
	if commentID == 0 {
		return fmt.Errorf("%w: %s requires a comment id", ErrInvalidAction, out.ActionType)
	}
	comment, err := dir.FindComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to load comment %d: %w", commentID, err)
	}
	if comment == nil || comment.PeekID != out.Post.ID {
		return fmt.Errorf("%w: comment %d on peek %d", ErrNotFound, commentID, out.Post.ID)
	}
	if comment.UserID != out.Actor.ID {
		return fmt.Errorf("%w: comment %d belongs to someone else", ErrNotAllowed, commentID)
	}
	out.Comment = &CommentRef{
		ID:      comment.ID,
		OwnerID: comment.UserID,
		Preview: Preview(comment.Content, PreviewLength),
	}

	if comment.ParentCommentID == nil {
		return nil
	}
	parent, err := dir.FindComment(ctx, *comment.ParentCommentID)
	if err != nil {
		return fmt.Errorf("failed to load parent comment %d: %w", *comment.ParentCommentID, err)
	}
	if parent != nil {
		out.ParentComment = &CommentRef{ID: parent.ID, OwnerID: parent.UserID}
	}
	return nil
}

// localPath keeps u only when it is a path on the app's own origin.
func localPath(u string) string {
	if !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return ""
	}
	return u
}

// StatusCode maps an Authorize or Fanout error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAction), errors.Is(err, ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
