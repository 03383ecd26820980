package export

import (
	"testing"
	"time"

	"admin-service/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilename(t *testing.T) {
	created := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-03-01_john_doe_abc123.jpg", Filename(created, "John Doe!", "abc123"))
	assert.Equal(t, "2024-03-01_alice_abc123.jpg", Filename(created, "Alice", "abc123"))
	// only one underscore is absorbed by the separator
	assert.Equal(t, "2024-03-01_bob__abc123.jpg", Filename(created, "Bob!!", "abc123"))
}

func TestFilename_UsesUTCDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	created := time.Date(2024, 3, 1, 22, 0, 0, 0, est)
	assert.Equal(t, "2024-03-02_bob_1.jpg", Filename(created, "bob", "1"))
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"John Doe!", "john_doe_"},
		{"MiXeD123", "mixed123"},
		{"zoë", "zo_"},
		{"a😀b", "a__b"},
		{"dash-and.dot", "dash_and_dot"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeUsername(tt.in))
		})
	}
}

func TestFilenameFor_UnknownAuthor(t *testing.T) {
	id := primitive.NewObjectID()
	p := &model.PostRecord{Post: model.Post{
		ID:        id,
		CreatedAt: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}}
	assert.Equal(t, "2023-12-31_unknown_"+id.Hex()+".jpg", FilenameFor(p))

	p.Author = &model.UserSummary{Username: "Meme Lord"}
	assert.Equal(t, "2023-12-31_meme_lord_"+id.Hex()+".jpg", FilenameFor(p))
}
