package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"linkup/internal/model"
	"linkup/internal/repository"

	"github.com/google/uuid"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memStore backs every fake repository with the same state so the
// friendship graph and the request table stay consistent.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*model.User
	requests    map[string]*model.FriendRequest
	friendships map[[2]string]*model.Friendship
	calls       map[string]*model.CallSession
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*model.User),
		requests:    make(map[string]*model.FriendRequest),
		friendships: make(map[[2]string]*model.Friendship),
		calls:       make(map[string]*model.CallSession),
	}
}

func (s *memStore) addUser(name, email string, lastSeen time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.users[id] = &model.User{ID: id, DisplayName: name, Email: email, LastSeen: lastSeen, CreatedAt: lastSeen}
	return id
}

// fakeUserRepo matches ids ignoring case, as PostgreSQL does for uuid
// columns.
type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[strings.ToLower(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.users[strings.ToLower(id)]
	return ok, nil
}

func (r *fakeUserRepo) Search(ctx context.Context, query, excludeID string, limit int) ([]model.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q := strings.ToLower(query)
	var out []model.UserProfile
	for _, u := range r.s.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.DisplayName), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u.ToProfile())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeFriendRequestRepo struct{ s *memStore }

func (r *fakeFriendRequestRepo) Create(ctx context.Context, req *model.FriendRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.requests {
		if existing.IsPending() && existing.SenderID == req.SenderID && existing.ReceiverID == req.ReceiverID {
			return repository.ErrDuplicate
		}
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r *fakeFriendRequestRepo) ListIncoming(ctx context.Context, receiverID string) ([]model.IncomingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.IncomingRequest
	for _, req := range r.s.requests {
		if req.ReceiverID != receiverID || !req.IsPending() {
			continue
		}
		var sender model.UserProfile
		if u, ok := r.s.users[req.SenderID]; ok {
			sender = u.ToProfile()
		}
		out = append(out, model.IncomingRequest{
			ID:        req.ID,
			SenderID:  req.SenderID,
			Status:    req.Status,
			CreatedAt: req.CreatedAt,
			Sender:    sender,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeFriendRequestRepo) Accept(ctx context.Context, requestID, receiverID string, now time.Time) (*model.FriendRequest, *model.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[requestID]
	if !ok || req.ReceiverID != receiverID || !req.IsPending() {
		return nil, nil, repository.ErrNotFound
	}
	next := *req
	edge, err := next.Accept(now)
	if err != nil {
		return nil, nil, repository.ErrNotFound
	}
	key := [2]string{edge.User1ID, edge.User2ID}
	if _, exists := r.s.friendships[key]; exists {
		return nil, nil, repository.ErrDuplicate
	}
	r.s.friendships[key] = edge
	*req = next
	cp := next
	return &cp, edge, nil
}

func (r *fakeFriendRequestRepo) Reject(ctx context.Context, requestID, receiverID string, now time.Time) (*model.FriendRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[requestID]
	if !ok || req.ReceiverID != receiverID {
		return nil, repository.ErrNotFound
	}
	if err := req.Reject(now); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

type fakeFriendshipRepo struct{ s *memStore }

func (r *fakeFriendshipRepo) ListFriends(ctx context.Context, userID string) ([]model.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.UserProfile
	for key := range r.s.friendships {
		var other string
		switch userID {
		case key[0]:
			other = key[1]
		case key[1]:
			other = key[0]
		default:
			continue
		}
		if u, ok := r.s.users[other]; ok {
			out = append(out, u.ToProfile())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

func (r *fakeFriendshipRepo) AreFriends(ctx context.Context, a, b string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u1, u2 := model.NormalizePair(a, b)
	_, ok := r.s.friendships[[2]string{u1, u2}]
	return ok, nil
}

type fakeCallRepo struct{ s *memStore }

func (r *fakeCallRepo) Create(ctx context.Context, call *model.CallSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	cp := *call
	r.s.calls[call.ID] = &cp
	return nil
}

func (r *fakeCallRepo) End(ctx context.Context, callID, userID string, now time.Time) (*model.CallSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	call, ok := r.s.calls[callID]
	if !ok || !call.IsParticipant(userID) {
		return nil, repository.ErrNotFound
	}
	call.End(now)
	cp := *call
	return &cp, nil
}

func (r *fakeCallRepo) History(ctx context.Context, userID string, limit int) ([]model.CallHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.CallHistoryEntry
	for _, c := range r.s.calls {
		if !c.IsParticipant(userID) {
			continue
		}
		other := r.s.users[c.Other(userID)]
		entry := model.CallHistoryEntry{
			ID:              c.ID,
			Status:          c.Status,
			CallerID:        c.CallerID,
			ReceiverID:      c.ReceiverID,
			StartedAt:       c.StartedAt,
			EndedAt:         c.EndedAt,
			DurationSeconds: c.DurationSeconds,
			OtherUserID:     c.Other(userID),
		}
		if other != nil {
			entry.OtherUserName = other.DisplayName
			entry.OtherUserAvatar = other.AvatarURL
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingHub struct {
	mu       sync.Mutex
	payloads map[string][]map[string]interface{}
}

func newRecordingHub() *recordingHub {
	return &recordingHub{payloads: make(map[string][]map[string]interface{})}
}

func (h *recordingHub) BroadcastToUser(userID string, payload map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads[userID] = append(h.payloads[userID], payload)
}

func (h *recordingHub) count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.payloads[userID])
}
