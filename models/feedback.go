package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Feedback holds the structure for the feedbacks collection in mongo
type Feedback struct {
	ID        primitive.ObjectID  `json:"_id" bson:"_id"`
	User      primitive.ObjectID  `json:"user" bson:"user"`
	Report    *primitive.ObjectID `json:"report,omitempty" bson:"report,omitempty"`
	Rating    int                 `json:"rating" bson:"rating" validate:"gte=1,lte=5"`
	Message   string              `json:"message" bson:"message" validate:"required"`
	CreatedAt primitive.DateTime  `json:"createdAt" bson:"createdAt"`
}
