package service

import (
	"context"
	"fmt"

	"admin-service/apperr"
	"admin-service/events"
	"admin-service/logger"
	"admin-service/metrics"
	"admin-service/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionFlag   = "flag"
	ActionUnflag = "unflag"
	ActionDelete = "delete"
)

type PostService struct {
	posts PostStore
	pub   events.Publisher
	log   logger.Logger
}

func NewPostService(posts PostStore, pub events.Publisher, log logger.Logger) *PostService {
	return &PostService{posts: posts, pub: pub, log: log}
}

// PostModerated is published after a moderation action
type PostModerated struct {
	PostID  string `json:"postId"`
	Action  string `json:"action"`
	ActorID string `json:"actorId"`
}

// List returns every post in the dashboard format.
func (s *PostService) List(ctx context.Context) ([]model.PostView, error) {
	posts, err := s.posts.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	views := make([]model.PostView, len(posts))
	for i := range posts {
		views[i] = model.NewPostView(&posts[i])
	}
	return views, nil
}

func (s *PostService) ListFlagged(ctx context.Context) ([]model.PostRecord, error) {
	posts, err := s.posts.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list flagged posts: %w", err)
	}
	return posts, nil
}

// Moderate flags, unflags or deletes a post. The returned record is nil for
// deletions.
func (s *PostService) Moderate(ctx context.Context, id, action string, actor primitive.ObjectID) (*model.PostRecord, error) {
	if action != ActionFlag && action != ActionUnflag && action != ActionDelete {
		return nil, apperr.Validation("Invalid action. Must be 'flag', 'unflag', or 'delete'")
	}
	oid, err := parseID(id, "post")
	if err != nil {
		return nil, err
	}

	var post *model.PostRecord
	if action == ActionDelete {
		if err := s.posts.Delete(ctx, oid); err != nil {
			return nil, notFound(err, "Post not found")
		}
	} else {
		post, err = s.posts.SetFlagged(ctx, oid, action == ActionFlag)
		if err != nil {
			return nil, notFound(err, "Post not found")
		}
	}

	metrics.ModerationActionsTotal.WithLabelValues("post", action).Inc()
	s.log.Info("Post moderated",
		logger.String("post_id", id),
		logger.String("action", action),
		logger.String("actor_id", actor.Hex()),
	)
	events.Emit(ctx, s.pub, s.log, events.SubjectPostModerated, PostModerated{
		PostID:  id,
		Action:  action,
		ActorID: actor.Hex(),
	})
	return post, nil
}
