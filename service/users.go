package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"admin-service/apperr"
	"admin-service/events"
	"admin-service/logger"
	"admin-service/metrics"
	"admin-service/model"
	"admin-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultUserPageSize = 50

type UserService struct {
	users UserStore
	posts PostStore
	pub   events.Publisher
	log   logger.Logger
}

func NewUserService(users UserStore, posts PostStore, pub events.Publisher, log logger.Logger) *UserService {
	return &UserService{users: users, posts: posts, pub: pub, log: log}
}

// UserStatusChanged is published when an admin suspends or reactivates a user
type UserStatusChanged struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	ActorID  string `json:"actorId"`
}

// List returns one page of users with post and follower counts.
func (s *UserService) List(ctx context.Context, page, limit int) ([]model.UserListItem, Page, error) {
	page, limit = normalizePage(page, limit, defaultUserPageSize)
	users, total, err := s.users.List(ctx, int64((page-1)*limit), int64(limit))
	if err != nil {
		return nil, Page{}, fmt.Errorf("list users: %w", err)
	}

	ids := make([]primitive.ObjectID, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	counts, err := s.posts.CountByUsers(ctx, ids)
	if err != nil {
		return nil, Page{}, fmt.Errorf("count posts: %w", err)
	}

	items := make([]model.UserListItem, len(users))
	for i, u := range users {
		u.Status = u.EffectiveStatus()
		items[i] = model.UserListItem{
			User:          u,
			PostCount:     counts[u.ID],
			FollowerCount: len(u.Followers),
		}
	}
	return items, newPage(len(items), total, page, limit), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// Update applies the editable profile fields.
func (s *UserService) Update(ctx context.Context, id string, in model.UserUpdate) (*model.User, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, apperr.Validation("Username cannot be empty")
		}
		set["username"] = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, apperr.Validation("Email cannot be empty")
		}
		set["email"] = email
	}
	if in.Role != nil {
		if *in.Role != model.RoleUser && *in.Role != model.RoleAdmin {
			return nil, apperr.Validation("Invalid role. Must be 'user' or 'admin'")
		}
		set["role"] = *in.Role
	}
	if in.Bio != nil {
		set["bio"] = *in.Bio
	}
	if in.ProfilePicture != nil {
		set["profilePicture"] = *in.ProfilePicture
	}
	if len(set) == 0 {
		return nil, apperr.Validation("No updatable fields provided")
	}

	u, err := s.users.Update(ctx, oid, set)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email already in use")
		}
		return nil, notFound(err, "User not found")
	}
	metrics.ModerationActionsTotal.WithLabelValues("user", "update").Inc()
	return u, nil
}

// SetStatus suspends or reactivates a user. A reason is required to
// suspend and is cleared on reactivation.
func (s *UserService) SetStatus(ctx context.Context, id, status, reason string, actor primitive.ObjectID) (*model.User, error) {
	if status != model.StatusActive && status != model.StatusSuspended {
		return nil, apperr.Validation("Invalid status. Must be 'active' or 'suspended'")
	}
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	set := bson.M{"status": status}
	if status == model.StatusSuspended {
		if strings.TrimSpace(reason) == "" {
			return nil, apperr.Validation("Suspension reason is required when suspending a user")
		}
		set["suspensionReason"] = reason
		set["suspendedAt"] = time.Now().UTC()
	} else {
		reason = ""
		set["suspensionReason"] = ""
		set["suspendedAt"] = nil
	}

	u, err := s.users.Update(ctx, oid, set)
	if err != nil {
		return nil, notFound(err, "User not found")
	}

	metrics.ModerationActionsTotal.WithLabelValues("user", status).Inc()
	s.log.Info("User status changed",
		logger.String("user_id", u.ID.Hex()),
		logger.String("status", status),
		logger.String("actor_id", actor.Hex()),
	)
	events.Emit(ctx, s.pub, s.log, events.SubjectUserStatus, UserStatusChanged{
		UserID:   u.ID.Hex(),
		Username: u.Username,
		Status:   status,
		Reason:   reason,
		ActorID:  actor.Hex(),
	})
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, oid); err != nil {
		return notFound(err, "User not found")
	}
	metrics.ModerationActionsTotal.WithLabelValues("user", "delete").Inc()
	s.log.Info("User deleted", logger.String("user_id", id))
	return nil
}
