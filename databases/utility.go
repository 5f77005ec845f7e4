package databases

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip, Sort: bson.D{{Key: "createdAt", Value: -1}}}

	return &fOpt
}

// Paginate returns newest-first find options for the given page, plus the
// normalised limit and page that were applied
func Paginate(limit, page int) (*options.FindOptions, int, int) {
	mp := newMongoPaginate(limit, page)
	return mp.getPaginatedOpts(), int(mp.limit), int(mp.page)
}
