package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"peek/backend/internal/logging"
	"peek/backend/internal/models"
	"peek/backend/internal/push"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// BestieStore answers the relationship questions recipient resolution needs.
type BestieStore interface {
	IsAcceptedBestie(ctx context.Context, ownerID, bestieID uint) (bool, error)
	ListBestieOwners(ctx context.Context, bestieID uint) ([]uint, error)
}

// SubscriptionStore reads enabled subscriptions and drops expired ones.
type SubscriptionStore interface {
	ListEnabled(ctx context.Context, userIDs []uint) ([]models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Pusher hands one payload to the push delivery service.
type Pusher interface {
	Push(ctx context.Context, sub models.PushSubscription, payload []byte) error
}

// Delivery is the outcome for one subscription.
type Delivery struct {
	UserID   uint   `json:"userId"`
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	Expired  bool   `json:"expired,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result summarizes one fan-out.
type Result struct {
	Success      bool       `json:"success"`
	Message      string     `json:"message,omitempty"`
	Recipients   int        `json:"recipients"`
	SentToCount  int        `json:"sent_to_count"`
	FailedCount  int        `json:"failed_count"`
	ExpiredCount int        `json:"expired_count"`
	Results      []Delivery `json:"results,omitempty"`
}

// Notifier resolves recipients for an action and delivers one push per enabled subscription.
type Notifier struct {
	besties     BestieStore
	subs        SubscriptionStore
	pusher      Pusher
	concurrency int
	now         func() time.Time
}

func NewNotifier(besties BestieStore, subs SubscriptionStore, pusher Pusher, concurrency int) *Notifier {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Notifier{
		besties:     besties,
		subs:        subs,
		pusher:      pusher,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Resolve returns the users that should hear about the action, without duplicates.
func (n *Notifier) Resolve(ctx context.Context, a Action) ([]uint, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	switch a.ActionType {
	case ActionNewPost:
		owners, err := n.besties.ListBestieOwners(ctx, a.Actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list besties of %d: %w", a.Actor.ID, err)
		}
		return dedupe(owners, a.Actor.ID), nil

	case ActionLike:
		return n.ifBestie(ctx, nil, a.Post.OwnerID, a.Actor.ID)

	case ActionComment:
		ids, err := n.ifBestie(ctx, nil, a.Post.OwnerID, a.Actor.ID)
		if err != nil {
			return nil, err
		}
		if a.ParentComment != nil {
			ids, err = n.ifBestie(ctx, ids, a.ParentComment.OwnerID, a.Actor.ID)
			if err != nil {
				return nil, err
			}
		}
		return dedupe(ids, a.Actor.ID), nil

	case ActionNewBestieRequest, ActionBestieRequestAccepted:
		return dedupe([]uint{a.TargetUser.ID}, a.Actor.ID), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.ActionType)
}

// ifBestie appends ownerID to ids when actorID is one of ownerID's accepted besties.
// Owners never get notified about their own actions.
func (n *Notifier) ifBestie(ctx context.Context, ids []uint, ownerID, actorID uint) ([]uint, error) {
	if ownerID == 0 || ownerID == actorID {
		return ids, nil
	}
	ok, err := n.besties.IsAcceptedBestie(ctx, ownerID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check bestie %d of %d: %w", actorID, ownerID, err)
	}
	if ok {
		ids = append(ids, ownerID)
	}
	return ids, nil
}

// Fanout resolves recipients and pushes to every enabled subscription they own.
// Delivery failures are recorded per subscription and never abort the others.
func (n *Notifier) Fanout(ctx context.Context, a Action) (*Result, error) {
	userIDs, err := n.Resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return &Result{Success: true, Message: "No notification required for this action."}, nil
	}

	subs, err := n.subs.ListEnabled(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return &Result{
			Success:    true,
			Message:    "Users had no active push subscriptions.",
			Recipients: len(userIDs),
		}, nil
	}

	body, err := json.Marshal(BuildPayload(a, n.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	deliveries := make([]Delivery, len(subs))
	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			deliveries[i] = n.deliver(ctx, sub, body)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		Success:    true,
		Recipients: len(userIDs),
		Results:    deliveries,
	}
	for _, d := range deliveries {
		switch {
		case d.Success:
			result.SentToCount++
		case d.Expired:
			result.ExpiredCount++
		default:
			result.FailedCount++
		}
	}
	result.Message = fmt.Sprintf("Sent %d notifications to besties", result.SentToCount)

	logging.Info("bestie push fan-out finished",
		zap.String("action", string(a.ActionType)),
		zap.Uint("actor_id", a.Actor.ID),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.SentToCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("expired", result.ExpiredCount),
	)
	return result, nil
}

func (n *Notifier) deliver(ctx context.Context, sub models.PushSubscription, body []byte) Delivery {
	d := Delivery{UserID: sub.UserID, Endpoint: sub.Endpoint}

	err := n.pusher.Push(ctx, sub, body)
	if err == nil {
		d.Success = true
		return d
	}
	d.Error = err.Error()

	if errors.Is(err, push.ErrSubscriptionGone) {
		d.Expired = true
		logging.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if delErr := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
			logging.Error("Failed to delete expired subscription",
				zap.String("endpoint", sub.Endpoint), zap.Error(delErr))
		}
		return d
	}

	logging.Error("Error sending push notification",
		zap.Uint("user_id", sub.UserID), zap.String("endpoint", sub.Endpoint), zap.Error(err))
	return d
}

// dedupe keeps the first occurrence of each id and drops skip.
func dedupe(ids []uint, skip uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == skip || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
