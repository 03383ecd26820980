package service

import (
	"context"
	"fmt"
	"strings"

	"admin-service/apperr"
	"admin-service/events"
	"admin-service/logger"
	"admin-service/metrics"
	"admin-service/model"
	"admin-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultAppealPageSize = 10

type AppealService struct {
	appeals AppealStore
	users   UserStore
	pub     events.Publisher
	log     logger.Logger
}

func NewAppealService(appeals AppealStore, users UserStore, pub events.Publisher, log logger.Logger) *AppealService {
	return &AppealService{appeals: appeals, users: users, pub: pub, log: log}
}

// AppealEvent is published when an appeal is filed or reviewed
type AppealEvent struct {
	AppealID string `json:"appealId"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// Submit files an appeal for a suspended user. Only one pending appeal is
// allowed per username.
func (s *AppealService) Submit(ctx context.Context, username, text string) (*model.Appeal, error) {
	username = strings.TrimSpace(username)
	text = strings.TrimSpace(text)
	if username == "" || text == "" {
		return nil, apperr.Validation("Username and appeal text are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	if user.Status != model.StatusSuspended {
		return nil, apperr.Validation("Only suspended accounts can submit appeals")
	}

	if _, err := s.appeals.FindPending(ctx, username); err == nil {
		return nil, apperr.Conflict("You already have a pending appeal. Please wait for it to be reviewed.")
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("check pending appeal: %w", err)
	}

	appeal := &model.Appeal{
		Username:   username,
		UserID:     user.ID,
		AppealText: text,
		Status:     model.AppealPending,
	}
	if err := s.appeals.Create(ctx, appeal); err != nil {
		return nil, fmt.Errorf("create appeal: %w", err)
	}

	metrics.AppealsTotal.WithLabelValues(model.AppealPending).Inc()
	s.log.Info("Appeal submitted",
		logger.String("appeal_id", appeal.ID.Hex()),
		logger.String("username", username),
	)
	events.Emit(ctx, s.pub, s.log, events.SubjectAppealSubmit, AppealEvent{
		AppealID: appeal.ID.Hex(),
		Username: username,
		Status:   appeal.Status,
	})
	return appeal, nil
}

// Pending returns the pending appeal of username, or nil when there is none.
func (s *AppealService) Pending(ctx context.Context, username string) (*model.Appeal, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("Username is required")
	}
	a, err := s.appeals.FindPending(ctx, username)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending appeal: %w", err)
	}
	return a, nil
}

// List returns one page of appeals. Unknown status values are ignored.
func (s *AppealService) List(ctx context.Context, status string, page, limit int) ([]model.AppealView, Page, error) {
	if !model.ValidAppealStatus(status) {
		status = ""
	}
	page, limit = normalizePage(page, limit, defaultAppealPageSize)
	appeals, total, err := s.appeals.List(ctx, status, int64((page-1)*limit), int64(limit))
	if err != nil {
		return nil, Page{}, fmt.Errorf("list appeals: %w", err)
	}
	return appeals, newPage(len(appeals), total, page, limit), nil
}

func (s *AppealService) Counts(ctx context.Context) (model.AppealCounts, error) {
	counts, err := s.appeals.CountByStatus(ctx)
	if err != nil {
		return model.AppealCounts{}, fmt.Errorf("count appeals: %w", err)
	}
	return counts, nil
}

// Review approves or rejects an appeal. Approval reactivates the user.
func (s *AppealService) Review(ctx context.Context, id, status, response string, reviewer primitive.ObjectID) (*model.Appeal, error) {
	if status != model.AppealApproved && status != model.AppealRejected {
		return nil, apperr.Validation("Valid status (approved or rejected) is required")
	}
	oid, err := parseID(id, "appeal")
	if err != nil {
		return nil, err
	}
	if _, err := s.appeals.FindByID(ctx, oid); err != nil {
		return nil, notFound(err, "Appeal not found")
	}

	appeal, err := s.appeals.Review(ctx, oid, status, response, reviewer)
	if err != nil {
		return nil, notFound(err, "Appeal not found")
	}

	if status == model.AppealApproved {
		err := s.users.SetStatusByUsername(ctx, appeal.Username, bson.M{
			"status":           model.StatusActive,
			"suspensionReason": "",
			"suspendedAt":      nil,
		})
		if err != nil {
			return nil, fmt.Errorf("reactivate user: %w", err)
		}
	}

	metrics.AppealsTotal.WithLabelValues(status).Inc()
	s.log.Info("Appeal reviewed",
		logger.String("appeal_id", id),
		logger.String("status", status),
		logger.String("reviewer_id", reviewer.Hex()),
	)
	events.Emit(ctx, s.pub, s.log, events.SubjectAppealReviewed, AppealEvent{
		AppealID: id,
		Username: appeal.Username,
		Status:   status,
	})
	return appeal, nil
}
