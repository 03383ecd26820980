package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"admin-service/model"
	"admin-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errBoom = errors.New("boom")

type memUsers struct {
	mu    sync.Mutex
	users []*model.User
}

func (m *memUsers) add(u model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users = append(m.users, &u)
	return &u
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Username == u.Username || x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *memUsers) FindByEmailOrUsername(_ context.Context, email, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email || u.Username == username })
}

func (m *memUsers) List(_ context.Context, skip, limit int64) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := int64(len(m.users))
	out := []model.User{}
	for i := skip; i < total && int64(len(out)) < limit; i++ {
		out = append(out, *m.users[i])
	}
	return out, total, nil
}

func apply(u *model.User, set bson.M) {
	for k, v := range set {
		switch k {
		case "username":
			u.Username = v.(string)
		case "email":
			u.Email = v.(string)
		case "role":
			u.Role = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "profilePicture":
			u.ProfilePicture = v.(string)
		case "status":
			u.Status = v.(string)
		case "suspensionReason":
			u.SuspensionReason = v.(string)
		case "suspendedAt":
			if t, ok := v.(time.Time); ok {
				u.SuspendedAt = &t
			} else {
				u.SuspendedAt = nil
			}
		}
	}
}

func (m *memUsers) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			apply(u, set)
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) SetStatusByUsername(_ context.Context, username string, set bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			apply(u, set)
			return nil
		}
	}
	// UpdateOne with no match is not an error
	return nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.users {
		if u.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memPosts struct {
	posts []model.PostRecord
	err   error
}

func (m *memPosts) List(_ context.Context, flaggedOnly bool) ([]model.PostRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []model.PostRecord{}
	for _, p := range m.posts {
		if flaggedOnly && !p.Flagged {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPosts) SetFlagged(_ context.Context, id primitive.ObjectID, flagged bool) (*model.PostRecord, error) {
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts[i].Flagged = flagged
			cp := m.posts[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPosts) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memPosts) CountByUsers(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := map[primitive.ObjectID]int64{}
	for _, p := range m.posts {
		for _, id := range ids {
			if p.User == id {
				out[id]++
			}
		}
	}
	return out, nil
}

type memAppeals struct {
	appeals []*model.Appeal
}

func (m *memAppeals) Create(_ context.Context, a *model.Appeal) error {
	a.ID = primitive.NewObjectID()
	a.CreatedAt = time.Now().UTC()
	cp := *a
	m.appeals = append(m.appeals, &cp)
	return nil
}

func (m *memAppeals) FindPending(_ context.Context, username string) (*model.Appeal, error) {
	for _, a := range m.appeals {
		if a.Username == username && a.Status == model.AppealPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAppeals) FindByID(_ context.Context, id primitive.ObjectID) (*model.Appeal, error) {
	for _, a := range m.appeals {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAppeals) List(_ context.Context, status string, skip, limit int64) ([]model.AppealView, int64, error) {
	var all []model.AppealView
	for _, a := range m.appeals {
		if status == "" || a.Status == status {
			all = append(all, model.AppealView{Appeal: *a})
		}
	}
	total := int64(len(all))
	out := []model.AppealView{}
	for i := skip; i < total && int64(len(out)) < limit; i++ {
		out = append(out, all[i])
	}
	return out, total, nil
}

func (m *memAppeals) CountByStatus(context.Context) (model.AppealCounts, error) {
	var c model.AppealCounts
	for _, a := range m.appeals {
		switch a.Status {
		case model.AppealPending:
			c.Pending++
		case model.AppealApproved:
			c.Approved++
		case model.AppealRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (m *memAppeals) Review(_ context.Context, id primitive.ObjectID, status, response string, reviewer primitive.ObjectID) (*model.Appeal, error) {
	for _, a := range m.appeals {
		if a.ID == id {
			now := time.Now().UTC()
			a.Status = status
			a.AdminResponse = response
			a.ReviewedBy = &reviewer
			a.ReviewedAt = &now
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memSnapshots struct {
	snaps []model.StorageSnapshot
}

func (m *memSnapshots) Insert(_ context.Context, s model.StorageSnapshot) error {
	m.snaps = append(m.snaps, s)
	return nil
}

func (m *memSnapshots) Since(_ context.Context, t time.Time) ([]model.StorageSnapshot, error) {
	out := []model.StorageSnapshot{}
	for _, s := range m.snaps {
		if !s.RecordedAt.Before(t) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

func (m *memSnapshots) LatestBefore(_ context.Context, t time.Time) (*model.StorageSnapshot, error) {
	var latest *model.StorageSnapshot
	for i := range m.snaps {
		s := &m.snaps[i]
		if s.RecordedAt.Before(t) && (latest == nil || s.RecordedAt.After(latest.RecordedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

type published struct {
	subject string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, payload: payload})
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.subject
	}
	return out
}
