package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// GoodCitizenPoint is one append-only entry in the points ledger
type GoodCitizenPoint struct {
	ID        primitive.ObjectID  `json:"_id" bson:"_id"`
	User      primitive.ObjectID  `json:"user" bson:"user"`
	Village   *primitive.ObjectID `json:"village,omitempty" bson:"village,omitempty"`
	Report    *primitive.ObjectID `json:"report,omitempty" bson:"report,omitempty"`
	Points    int                 `json:"points" bson:"points"`
	Action    string              `json:"action" bson:"action"`
	CreatedAt primitive.DateTime  `json:"createdAt" bson:"createdAt"`
}

// CitizenStanding is a leaderboard row for a single citizen
type CitizenStanding struct {
	UserID   primitive.ObjectID `json:"userId" bson:"_id"`
	Name     string             `json:"name" bson:"name"`
	District string             `json:"district,omitempty" bson:"district"`
	Points   int                `json:"points" bson:"points"`
	Reports  int                `json:"reports" bson:"reports"`
}

// VillageStanding is a leaderboard row for a village
type VillageStanding struct {
	VillageID primitive.ObjectID `json:"villageId" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	District  string             `json:"district,omitempty" bson:"district"`
	Points    int                `json:"points" bson:"points"`
	Citizens  int                `json:"citizens" bson:"citizens"`
}
