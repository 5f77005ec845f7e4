package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Event holds the structure for the events collection in mongo
type Event struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id"`
	Title       string              `json:"title" bson:"title" validate:"required"`
	Description string              `json:"description,omitempty" bson:"description,omitempty"`
	Village     *primitive.ObjectID `json:"village,omitempty" bson:"village,omitempty"`
	District    string              `json:"district,omitempty" bson:"district,omitempty"`
	Location    string              `json:"location,omitempty" bson:"location,omitempty"`
	StartsAt    primitive.DateTime  `json:"startsAt" bson:"startsAt"`
	CreatedBy   primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	CreatedAt   primitive.DateTime  `json:"createdAt" bson:"createdAt"`
}
