package notify

import (
	"fmt"
	"time"
)

const (
	defaultIcon  = "/icon-192x192.png"
	defaultBadge = "/badge-72x72.png"
)

// Payload is the JSON document the service worker receives.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url"`
	Icon      string `json:"icon,omitempty"`
	Badge     string `json:"badge,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// BuildPayload renders the per-action template. Overrides on the action win.
func BuildPayload(a Action, now time.Time) Payload {
	p := Payload{
		Icon:      defaultIcon,
		Badge:     defaultBadge,
		Timestamp: now.UnixMilli(),
	}
	name := a.Actor.Username
	if name == "" {
		name = "Someone"
	}

	switch a.ActionType {
	case ActionNewPost:
		p.Title = fmt.Sprintf("Your bestie %s shared a new peek!", name)
		p.Body = a.Post.Preview
		p.URL = fmt.Sprintf("/posts/%d", a.Post.ID)
		p.Tag = "new-peek"
	case ActionLike:
		p.Title = fmt.Sprintf("Your bestie %s has an update!", name)
		p.Body = "They loved your post."
		p.URL = fmt.Sprintf("/posts/%d", a.Post.ID)
		p.Tag = "love"
	case ActionComment:
		p.Title = fmt.Sprintf("Your bestie %s has an update!", name)
		p.Body = fmt.Sprintf(`Commented: "%s"`, a.Comment.Preview)
		p.URL = fmt.Sprintf("/posts/%d", a.Post.ID)
		p.Tag = "comment"
	case ActionNewBestieRequest:
		p.Title = "💌 You have a new Bestie Request!"
		p.Body = fmt.Sprintf("%s wants to be your bestie.", name)
		p.URL = "/besties"
		p.Tag = "bestie-request"
	case ActionBestieRequestAccepted:
		p.Title = "🎉 Bestie Request Accepted!"
		p.Body = fmt.Sprintf("%s accepted your bestie request.", name)
		p.URL = fmt.Sprintf("/profile/%d", a.Actor.ID)
		p.Tag = "bestie-accepted"
	}

	if a.Title != "" {
		p.Title = a.Title
	}
	if a.Message != "" {
		p.Body = a.Message
	}
	if a.URL != "" {
		p.URL = a.URL
	}
	return p
}
