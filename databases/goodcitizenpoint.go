package databases

// go generate: mockery --name PointDatabase

import (
	"context"

	"github.com/civicreport/civic-report-api/models"
)

const pointName = "goodcitizenpoints"

// PointDatabase contains the methods to use with the good citizen points ledger
type PointDatabase interface {
	InsertOne(ctx context.Context, point models.GoodCitizenPoint) (interface{}, error)
	Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error
}

type pointDatabase struct {
	db DatabaseHelper
}

// NewPointDatabase initializes a new instance of the points ledger with the provided db connection
func NewPointDatabase(db DatabaseHelper) PointDatabase {
	return &pointDatabase{
		db: db,
	}
}

func (p *pointDatabase) InsertOne(ctx context.Context, point models.GoodCitizenPoint) (interface{}, error) {
	return p.db.Collection(pointName).InsertOne(ctx, point)
}

func (p *pointDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	cursor, err := p.db.Collection(pointName).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}
