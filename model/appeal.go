package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AppealPending  = "pending"
	AppealApproved = "approved"
	AppealRejected = "rejected"
)

// Appeal is a suspended user's request to be reinstated
type Appeal struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username      string              `bson:"username" json:"username"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"`
	AppealText    string              `bson:"appealText" json:"appealText"`
	Status        string              `bson:"status" json:"status"`
	AdminResponse string              `bson:"adminResponse" json:"adminResponse"`
	ReviewedBy    *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time          `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// AppealView is an appeal with its user and reviewer populated.
type AppealView struct {
	Appeal   `bson:",inline"`
	User     *UserSummary `bson:"user,omitempty" json:"user"`
	Reviewer *UserSummary `bson:"reviewer,omitempty" json:"reviewer,omitempty"`
}

type AppealCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

func ValidAppealStatus(s string) bool {
	return s == AppealPending || s == AppealApproved || s == AppealRejected
}
