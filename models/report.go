package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Report statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

// Urgency levels
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// ReportStatuses lists every status a report may hold
var ReportStatuses = []string{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

// UrgencyLevels maps each urgency level to the priority stored on the report
var UrgencyLevels = map[string]int{
	UrgencyLow:      1,
	UrgencyMedium:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

// Report holds the structure for the reports collection in mongo
type Report struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id"`
	Category      string              `json:"category" bson:"category"`
	Department    string              `json:"department" bson:"department"`
	District      string              `json:"district" bson:"district"`
	ReportedBy    primitive.ObjectID  `json:"reportedBy" bson:"reportedBy"`
	Description   string              `json:"description,omitempty" bson:"description,omitempty"`
	VoiceURL      string              `json:"voiceurl,omitempty" bson:"voiceurl,omitempty"`
	VoicePublicID string              `json:"voicepublicId,omitempty" bson:"voicepublicId,omitempty"`
	Location      string              `json:"location" bson:"location"`
	Coordinates   *Coordinates        `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	ImgURL        string              `json:"imgurl" bson:"imgurl"`
	ImgPublicID   string              `json:"imgpublicId" bson:"imgpublicId"`
	UrgencyLevel  string              `json:"urgencylevel" bson:"urgencylevel"`
	Status        string              `json:"status" bson:"status"`
	AssignedTo    *primitive.ObjectID `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Priority      int                 `json:"priority" bson:"priority"`
	ResolvedAt    *primitive.DateTime `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	CreatedAt     primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt     primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// Coordinates is the optional lat/long pair attached to a report
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// StatusCount is a single row of a status/department/district breakdown
type StatusCount struct {
	Key   string `json:"key" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}
