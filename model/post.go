package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PlacementWhitespace = "whitespace"
	PlacementOverlay    = "overlay"
)

// Categories lists the dashboard buckets; anything else counts as "other".
var Categories = []string{
	"entertainment", "sports", "gaming", "technology", "fashion", "music", "tv", "other",
}

// MemeText is a styled caption positioned over a post image.
// X and Y are percentages (0-100) of the image width and height.
type MemeText struct {
	Text       string  `bson:"text" json:"text"`
	X          float64 `bson:"x" json:"x"`
	Y          float64 `bson:"y" json:"y"`
	FontSize   float64 `bson:"fontSize,omitempty" json:"fontSize,omitempty"`
	FontFamily string  `bson:"fontFamily,omitempty" json:"fontFamily,omitempty"`
	Bold       bool    `bson:"bold" json:"bold"`
	Italic     bool    `bson:"italic" json:"italic"`
	Underline  bool    `bson:"underline" json:"underline"`
	Outline    bool    `bson:"outline" json:"outline"`
	Uppercase  bool    `bson:"uppercase" json:"uppercase"`
	Color      string  `bson:"color,omitempty" json:"color,omitempty"`
	TextAlign  string  `bson:"textAlign,omitempty" json:"textAlign,omitempty"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user,omitempty" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Post represents a post document in MongoDB
type Post struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID   `bson:"user,omitempty" json:"user"`
	Text             string               `bson:"text" json:"text"`
	Image            string               `bson:"image,omitempty" json:"image"`
	Category         string               `bson:"category,omitempty" json:"category"`
	Hashtags         []string             `bson:"hashtags" json:"hashtags"`
	Likes            []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments         []Comment            `bson:"comments" json:"comments"`
	MemeTexts        []MemeText           `bson:"memeTexts,omitempty" json:"memeTexts,omitempty"`
	CaptionPlacement string               `bson:"captionPlacement,omitempty" json:"captionPlacement,omitempty"`
	Flagged          bool                 `bson:"flagged" json:"flagged"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PostRecord is a post joined with the author fields needed by admin views
// and the export pipeline. Author is nil when the user no longer exists.
type PostRecord struct {
	Post   `bson:",inline"`
	Author *UserSummary `bson:"author,omitempty" json:"author"`
}

func (p *PostRecord) LikeCount() int    { return len(p.Likes) }
func (p *PostRecord) CommentCount() int { return len(p.Comments) }

func (p *PostRecord) HasOverlays() bool { return len(p.MemeTexts) > 0 }

// Username returns the author name or fallback when the author is missing.
func (p *PostRecord) Username(fallback string) string {
	if p.Author == nil {
		return fallback
	}
	return p.Author.Username
}

// PostView is the normalized shape returned by the admin post list.
type PostView struct {
	ID        primitive.ObjectID `json:"id"`
	Text      string             `json:"text"`
	Image     string             `json:"image"`
	Category  string             `json:"category"`
	CreatedAt time.Time          `json:"createdAt"`
	User      PostViewUser       `json:"user"`
	Likes     int                `json:"likes"`
	Comments  int                `json:"comments"`
	Flagged   bool               `json:"flagged"`
}

type PostViewUser struct {
	ID             *primitive.ObjectID `json:"id"`
	Username       string              `json:"username"`
	ProfilePicture *string             `json:"profilePicture"`
}

// NewPostView formats a record the way the dashboard expects it.
func NewPostView(p *PostRecord) PostView {
	v := PostView{
		ID:        p.ID,
		Text:      p.Text,
		Image:     p.Image,
		Category:  p.Category,
		CreatedAt: p.CreatedAt,
		User:      PostViewUser{Username: "Unknown"},
		Likes:     p.LikeCount(),
		Comments:  p.CommentCount(),
		Flagged:   p.Flagged,
	}
	if v.Category == "" {
		v.Category = "other"
	}
	if p.Author != nil {
		id := p.Author.ID
		pic := p.Author.ProfilePicture
		v.User = PostViewUser{ID: &id, Username: p.Author.Username, ProfilePicture: &pic}
	}
	return v
}
