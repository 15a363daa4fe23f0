package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/rsvp"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/postal"
)

// memForms 以 JSON 保存，读出的总是副本
type memForms struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemForms() *memForms { return &memForms{data: map[string][]byte{}} }

func (m *memForms) Get(_ context.Context, id string) (*rsvp.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, errors.FormNotFound
	}
	var f rsvp.Form
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (m *memForms) Save(_ context.Context, f *rsvp.Form) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[f.ID] = raw
	m.saves++
	return nil
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	seq   int
	fails bool
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) TryLock(_ context.Context, id string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fails {
		return "", false, nil
	}
	if _, ok := l.held[id]; ok {
		return "", false, nil
	}
	l.seq++
	token := strconv.Itoa(l.seq)
	l.held[id] = token
	return token, true, nil
}

func (l *memLocker) Unlock(_ context.Context, id, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] == token {
		delete(l.held, id)
	}
	return nil
}

func (l *memLocker) isHeld(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[id]
	return ok
}

type fakeGuests struct {
	guests map[string]*model.Guest
	calls  int
}

func (f *fakeGuests) GetGuestByInvitationID(_ context.Context, id, _ string) *model.Guest {
	f.calls++
	return f.guests[id]
}

// fakeResolver 每次调用前执行 before，用来在查询期间修改表单
type fakeResolver struct {
	addr   *postal.Address
	err    error
	calls  int
	before func()
}

func (r *fakeResolver) Resolve(_ context.Context, code string) (*postal.Address, error) {
	r.calls++
	if r.before != nil {
		r.before()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.addr, nil
}

type fakeSubmitter struct {
	mu          sync.Mutex
	err         error
	submissions []model.Submission
	delay       time.Duration
}

func (s *fakeSubmitter) Transport() string { return "fake" }

func (s *fakeSubmitter) Submit(_ context.Context, sub model.Submission) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.submissions = append(s.submissions, sub)
	return nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submissions)
}

type counterIDs struct {
	mu sync.Mutex
	n  int
}

func (c *counterIDs) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return "att-" + strconv.Itoa(c.n)
}

type harness struct {
	svc       *RSVPService
	forms     *memForms
	locker    *memLocker
	kv        *rsvp.MemoryKV
	guard     *rsvp.Guard
	guests    *fakeGuests
	resolver  *fakeResolver
	submitter *fakeSubmitter
}

func newHarness() *harness {
	h := &harness{
		forms:  newMemForms(),
		locker: newMemLocker(),
		kv:     rsvp.NewMemoryKV(),
		guests: &fakeGuests{guests: map[string]*model.Guest{
			"g1": {
				ID:       "g1",
				Name:     "テスト太郎",
				Kana:     "テストタロウ",
				Invite:   []model.InviteType{model.InviteCeremony, model.InviteReception},
				Autofill: &model.Autofill{Name: true, Kana: true},
			},
			"fam": {
				ID:     "fam",
				Name:   "家族代表",
				Invite: []model.InviteType{model.InviteReception, model.InviteAfterParty},
				Family: []model.Guest{{ID: "fam-1", Name: "家族一", Invite: []model.InviteType{model.InviteAfterParty}}},
			},
		}},
		resolver:  &fakeResolver{addr: &postal.Address{Prefecture: "東京都", Address: "東京都千代田区千代田"}},
		submitter: &fakeSubmitter{},
	}
	h.guard = rsvp.NewGuard(h.kv)

	h.svc = NewRSVPService(RSVPDeps{
		Forms:     h.forms,
		Locker:    h.locker,
		Guard:     h.guard,
		Guests:    h.guests,
		Postal:    h.resolver,
		Submitter: h.submitter,
		IDs:       &counterIDs{},
		Now:       func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) },
	})
	return h
}
