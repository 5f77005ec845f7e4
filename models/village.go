package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Village holds the structure for the villages collection in mongo
type Village struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Name        string             `json:"name" bson:"name" validate:"required"`
	District    string             `json:"district" bson:"district" validate:"required"`
	State       string             `json:"state" bson:"state"`
	Population  int                `json:"population" bson:"population" validate:"gte=0"`
	HeadName    string             `json:"headName,omitempty" bson:"headName,omitempty"`
	Contact     string             `json:"contact,omitempty" bson:"contact,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Facilities  []string           `json:"facilities,omitempty" bson:"facilities,omitempty"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// VillageSummary is the read model returned by the village summary endpoint
type VillageSummary struct {
	Village     Village `json:"village"`
	Citizens    int64   `json:"citizens"`
	Workers     int64   `json:"workers"`
	TotalPoints int     `json:"totalPoints"`
}
