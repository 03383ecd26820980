package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User represents an account stored in the users collection
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username         string               `bson:"username" json:"username"`
	Email            string               `bson:"email" json:"email"`
	Password         string               `bson:"password,omitempty" json:"-"`
	Role             string               `bson:"role" json:"role"`
	ProfilePicture   string               `bson:"profilePicture,omitempty" json:"profilePicture"`
	Bio              string               `bson:"bio,omitempty" json:"bio"`
	Followers        []primitive.ObjectID `bson:"followers" json:"followers"`
	Following        []primitive.ObjectID `bson:"following" json:"following"`
	Status           string               `bson:"status" json:"status"`
	SuspensionReason string               `bson:"suspensionReason" json:"suspensionReason"`
	SuspendedAt      *time.Time           `bson:"suspendedAt" json:"suspendedAt"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// EffectiveStatus defaults accounts created before moderation existed to active.
func (u *User) EffectiveStatus() string {
	if u.Status == "" {
		return StatusActive
	}
	return u.Status
}

// UserListItem is a user row in the admin user list
type UserListItem struct {
	User
	PostCount     int64 `json:"postCount"`
	FollowerCount int   `json:"followerCount"`
}

// UserUpdate carries the fields an admin may edit on a user.
type UserUpdate struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	Role           *string `json:"role"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profilePicture"`
}

// UserSummary is the populated form of a user reference
type UserSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Status         string             `bson:"status,omitempty" json:"status,omitempty"`
}
