package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"peek/backend/internal/models"
	"peek/backend/internal/push"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBesties holds accepted edges as owner -> set of besties.
type fakeBesties map[uint]map[uint]bool

func (f fakeBesties) accept(a, b uint) {
	if f[a] == nil {
		f[a] = map[uint]bool{}
	}
	if f[b] == nil {
		f[b] = map[uint]bool{}
	}
	f[a][b] = true
	f[b][a] = true
}

func (f fakeBesties) IsAcceptedBestie(_ context.Context, ownerID, bestieID uint) (bool, error) {
	return f[ownerID][bestieID], nil
}

func (f fakeBesties) ListBestieOwners(_ context.Context, bestieID uint) ([]uint, error) {
	var ids []uint
	for owner, set := range f {
		if set[bestieID] {
			ids = append(ids, owner)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeSubs struct {
	mu      sync.Mutex
	subs    []models.PushSubscription
	deleted []string
}

func (f *fakeSubs) ListEnabled(_ context.Context, userIDs []uint) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[uint]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.Enabled && want[s.UserID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteByEndpoint(_ context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoint)
	kept := f.subs[:0]
	for _, s := range f.subs {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	f.subs = kept
	return nil
}

type fakePusher struct {
	mu     sync.Mutex
	errs   map[string]error
	pushed map[string][]byte
}

func newFakePusher() *fakePusher {
	return &fakePusher{errs: map[string]error{}, pushed: map[string][]byte{}}
}

func (f *fakePusher) Push(_ context.Context, sub models.PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[sub.Endpoint]; ok {
		return err
	}
	f.pushed[sub.Endpoint] = payload
	return nil
}

func sub(userID uint, endpoint string) models.PushSubscription {
	return models.PushSubscription{UserID: userID, Endpoint: endpoint, Enabled: true}
}

func newTestNotifier(b fakeBesties, s *fakeSubs, p *fakePusher) *Notifier {
	n := NewNotifier(b, s, p, 4)
	n.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return n
}

func TestResolve_NewPostGoesToBestieOwners(t *testing.T) {
	b := fakeBesties{}
	b.accept(1, 2)
	b.accept(1, 3)
	b.accept(4, 5)

	n := newTestNotifier(b, &fakeSubs{}, newFakePusher())
	ids, err := n.Resolve(context.Background(), Action{
		ActionType: ActionNewPost,
		Actor:      Actor{ID: 1, Username: "ann"},
		Post:       &PostRef{ID: 10, OwnerID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3}, ids)
}

func TestResolve_LikeRequiresBestie(t *testing.T) {
	b := fakeBesties{}
	b.accept(1, 2)
	n := newTestNotifier(b, &fakeSubs{}, newFakePusher())
	ctx := context.Background()

	ids, err := n.Resolve(ctx, Action{ActionType: ActionLike, Actor: Actor{ID: 2}, Post: &PostRef{ID: 10, OwnerID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)

	ids, err = n.Resolve(ctx, Action{ActionType: ActionLike, Actor: Actor{ID: 3}, Post: &PostRef{ID: 10, OwnerID: 1}})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = n.Resolve(ctx, Action{ActionType: ActionLike, Actor: Actor{ID: 1}, Post: &PostRef{ID: 10, OwnerID: 1}})
	require.NoError(t, err)
	assert.Empty(t, ids, "owners are not notified about their own loves")
}

func TestResolve_CommentReplyNotifiesBothOwnersOnce(t *testing.T) {
	b := fakeBesties{}
	b.accept(1, 2)
	b.accept(3, 2)
	n := newTestNotifier(b, &fakeSubs{}, newFakePusher())
	ctx := context.Background()

	ids, err := n.Resolve(ctx, Action{
		ActionType:    ActionComment,
		Actor:         Actor{ID: 2},
		Post:          &PostRef{ID: 10, OwnerID: 1},
		Comment:       &CommentRef{ID: 7, Preview: "hi"},
		ParentComment: &CommentRef{ID: 6, OwnerID: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 3}, ids)

	ids, err = n.Resolve(ctx, Action{
		ActionType:    ActionComment,
		Actor:         Actor{ID: 2},
		Post:          &PostRef{ID: 10, OwnerID: 1},
		Comment:       &CommentRef{ID: 7, Preview: "hi"},
		ParentComment: &CommentRef{ID: 6, OwnerID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)

	ids, err = n.Resolve(ctx, Action{
		ActionType:    ActionComment,
		Actor:         Actor{ID: 2},
		Post:          &PostRef{ID: 10, OwnerID: 1},
		Comment:       &CommentRef{ID: 7},
		ParentComment: &CommentRef{ID: 6, OwnerID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids, "replying to yourself only reaches the post owner")
}

func TestResolve_BestieRequestsIgnoreGraph(t *testing.T) {
	n := newTestNotifier(fakeBesties{}, &fakeSubs{}, newFakePusher())
	ids, err := n.Resolve(context.Background(), Action{
		ActionType: ActionNewBestieRequest,
		Actor:      Actor{ID: 1},
		TargetUser: &UserRef{ID: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{9}, ids)
}

func TestResolve_RejectsInvalidActions(t *testing.T) {
	n := newTestNotifier(fakeBesties{}, &fakeSubs{}, newFakePusher())
	ctx := context.Background()

	_, err := n.Resolve(ctx, Action{ActionType: "SHARE", Actor: Actor{ID: 1}})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = n.Resolve(ctx, Action{ActionType: ActionLike, Actor: Actor{ID: 1}})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = n.Resolve(ctx, Action{ActionType: ActionNewPost, Post: &PostRef{ID: 1}})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestFanout_DeliversAndCleansUpExpired(t *testing.T) {
	b := fakeBesties{}
	b.accept(1, 2)
	b.accept(1, 3)
	b.accept(1, 4)
	subs := &fakeSubs{subs: []models.PushSubscription{
		sub(2, "https://push.example/a"),
		sub(2, "https://push.example/b"),
		sub(3, "https://push.example/gone"),
		sub(4, "https://push.example/broken"),
		sub(5, "https://push.example/stranger"),
	}}
	p := newFakePusher()
	p.errs["https://push.example/gone"] = fmt.Errorf("%w: %w", push.ErrSubscriptionGone, &push.DeliveryError{StatusCode: 410})
	p.errs["https://push.example/broken"] = &push.DeliveryError{StatusCode: 500, Body: "oops"}

	n := newTestNotifier(b, subs, p)
	res, err := n.Fanout(context.Background(), Action{
		ActionType: ActionNewPost,
		Actor:      Actor{ID: 1, Username: "ann"},
		Post:       &PostRef{ID: 10, OwnerID: 1, Preview: "sunset"},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Recipients)
	assert.Equal(t, 2, res.SentToCount)
	assert.Equal(t, 1, res.ExpiredCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Len(t, res.Results, 4)
	assert.Equal(t, "Sent 2 notifications to besties", res.Message)

	assert.Equal(t, []string{"https://push.example/gone"}, subs.deleted)
	assert.NotContains(t, p.pushed, "https://push.example/stranger")

	var payload Payload
	require.NoError(t, json.Unmarshal(p.pushed["https://push.example/a"], &payload))
	assert.Equal(t, "Your bestie ann shared a new peek!", payload.Title)
	assert.Equal(t, "sunset", payload.Body)
	assert.Equal(t, "/posts/10", payload.URL)
	assert.Equal(t, int64(1700000000000), payload.Timestamp)
}

func TestFanout_NothingToSend(t *testing.T) {
	n := newTestNotifier(fakeBesties{}, &fakeSubs{}, newFakePusher())
	res, err := n.Fanout(context.Background(), Action{
		ActionType: ActionLike,
		Actor:      Actor{ID: 2},
		Post:       &PostRef{ID: 10, OwnerID: 1},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "No notification required for this action.", res.Message)
	assert.Zero(t, res.SentToCount)

	b := fakeBesties{}
	b.accept(1, 2)
	n = newTestNotifier(b, &fakeSubs{}, newFakePusher())
	res, err = n.Fanout(context.Background(), Action{
		ActionType: ActionLike,
		Actor:      Actor{ID: 2},
		Post:       &PostRef{ID: 10, OwnerID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Users had no active push subscriptions.", res.Message)
	assert.Equal(t, 1, res.Recipients)
}

func TestInlineDispatcher(t *testing.T) {
	b := fakeBesties{}
	b.accept(1, 2)
	p := newFakePusher()
	d := NewInlineDispatcher(newTestNotifier(b, &fakeSubs{subs: []models.PushSubscription{sub(1, "e1")}}, p), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	err := d.Dispatch(ctx, Action{ActionType: ActionLike, Actor: Actor{ID: 2}, Post: &PostRef{ID: 3, OwnerID: 1}})
	require.NoError(t, err)
	cancel()
	d.Wait()

	assert.Contains(t, p.pushed, "e1", "delivery survives caller cancellation")

	err = d.Dispatch(context.Background(), Action{ActionType: ActionLike, Actor: Actor{ID: 2}})
	assert.True(t, errors.Is(err, ErrInvalidAction))
}
