package service

import (
	"context"
	"testing"

	"admin-service/apperr"
	"admin-service/events"
	"admin-service/logger"
	"admin-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserService_List(t *testing.T) {
	users := &memUsers{}
	alice := users.add(model.User{Username: "alice", Followers: []primitive.ObjectID{primitive.NewObjectID()}})
	users.add(model.User{Username: "bob", Status: model.StatusSuspended})
	users.add(model.User{Username: "carol"})
	posts := &memPosts{posts: []model.PostRecord{
		{Post: model.Post{ID: primitive.NewObjectID(), User: alice.ID}},
		{Post: model.Post{ID: primitive.NewObjectID(), User: alice.ID}},
	}}
	svc := NewUserService(users, posts, events.NopPublisher{}, logger.NewNop())

	items, page, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Page{Count: 2, Total: 3, Pages: 2, CurrentPage: 1}, page)
	assert.Equal(t, int64(2), items[0].PostCount)
	assert.Equal(t, 1, items[0].FollowerCount)
	assert.Equal(t, model.StatusActive, items[0].Status)
	assert.Equal(t, model.StatusSuspended, items[1].Status)

	items, page, err = svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 1, page.CurrentPage)
}

func TestUserService_SetStatus(t *testing.T) {
	users := &memUsers{}
	u := users.add(model.User{Username: "alice"})
	pub := &recordingPublisher{}
	svc := NewUserService(users, &memPosts{}, pub, logger.NewNop())
	admin := primitive.NewObjectID()

	_, err := svc.SetStatus(context.Background(), u.ID.Hex(), "banned", "", admin)
	assert.Equal(t, "Invalid status. Must be 'active' or 'suspended'", apperr.Message(err))

	_, err = svc.SetStatus(context.Background(), u.ID.Hex(), model.StatusSuspended, " ", admin)
	assert.Equal(t, "Suspension reason is required when suspending a user", apperr.Message(err))

	got, err := svc.SetStatus(context.Background(), u.ID.Hex(), model.StatusSuspended, "spam", admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, got.Status)
	assert.Equal(t, "spam", got.SuspensionReason)
	assert.NotNil(t, got.SuspendedAt)

	got, err = svc.SetStatus(context.Background(), u.ID.Hex(), model.StatusActive, "ignored", admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Empty(t, got.SuspensionReason)
	assert.Nil(t, got.SuspendedAt)

	assert.Equal(t, []string{events.SubjectUserStatus, events.SubjectUserStatus}, pub.subjects())
	last := pub.events[1].payload.(UserStatusChanged)
	assert.Equal(t, admin.Hex(), last.ActorID)
	assert.Empty(t, last.Reason)
}

func TestUserService_NotFoundAndInvalidID(t *testing.T) {
	svc := NewUserService(&memUsers{}, &memPosts{}, events.NopPublisher{}, logger.NewNop())

	_, err := svc.Get(context.Background(), "nope")
	assert.Equal(t, "Invalid user id", apperr.Message(err))

	missing := primitive.NewObjectID().Hex()
	_, err = svc.Get(context.Background(), missing)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(context.Background(), missing)
	assert.Equal(t, "User not found", apperr.Message(err))

	_, err = svc.SetStatus(context.Background(), missing, model.StatusActive, "", primitive.NewObjectID())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUserService_Update(t *testing.T) {
	users := &memUsers{}
	u := users.add(model.User{Username: "alice", Email: "a@x.io", Role: model.RoleUser})
	users.add(model.User{Username: "bob", Email: "b@x.io"})
	svc := NewUserService(users, &memPosts{}, events.NopPublisher{}, logger.NewNop())
	ptr := func(s string) *string { return &s }

	_, err := svc.Update(context.Background(), u.ID.Hex(), model.UserUpdate{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Update(context.Background(), u.ID.Hex(), model.UserUpdate{Role: ptr("root")})
	assert.Equal(t, "Invalid role. Must be 'user' or 'admin'", apperr.Message(err))

	got, err := svc.Update(context.Background(), u.ID.Hex(), model.UserUpdate{
		Role: ptr(model.RoleAdmin), Bio: ptr("hi"), Email: ptr(" A2@X.io "),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)
	assert.Equal(t, "hi", got.Bio)
	assert.Equal(t, "a2@x.io", got.Email)
	assert.Equal(t, "alice", got.Username)
}

func TestUserService_Delete(t *testing.T) {
	users := &memUsers{}
	u := users.add(model.User{Username: "alice"})
	svc := NewUserService(users, &memPosts{}, events.NopPublisher{}, logger.NewNop())

	require.NoError(t, svc.Delete(context.Background(), u.ID.Hex()))
	_, err := svc.Get(context.Background(), u.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
