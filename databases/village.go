package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/models"
)

const villageName = "villages"

// VillageDatabase contains the methods to use with the village database
type VillageDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Village, error)
	InsertOne(ctx context.Context, village models.Village) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
}

type villageDatabase struct {
	db DatabaseHelper
}

// NewVillageDatabase initializes a new instance of village database with the provided db connection
func NewVillageDatabase(db DatabaseHelper) VillageDatabase {
	return &villageDatabase{
		db: db,
	}
}

func (v *villageDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Village, error) {
	village := &models.Village{}
	err := v.db.Collection(villageName).FindOne(ctx, filter).Decode(village)
	if err != nil {
		return nil, err
	}
	return village, nil
}

func (v *villageDatabase) InsertOne(ctx context.Context, village models.Village) (interface{}, error) {
	return v.db.Collection(villageName).InsertOne(ctx, village)
}

func (v *villageDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return v.db.Collection(villageName).UpdateOne(ctx, filter, update)
}
