package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

var (
	errInvalidPeriod = errors.New("period must be week or month")
	errInvalidScope  = errors.New("invalid scope")
)

// Leaderboard ranks citizens and villages by good citizen points
type Leaderboard struct {
	PDB databases.PointDatabase
	now func() time.Time
}

type leaderboardQuery struct {
	period   string
	since    time.Time
	scope    string
	district string
	village  primitive.ObjectID
	limit    int
}

func (l Leaderboard) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// parseQuery reads period, scope and limit. allowVillage enables scope=village.
func (l Leaderboard) parseQuery(r *http.Request, allowVillage bool) (leaderboardQuery, error) {
	q := r.URL.Query()
	lq := leaderboardQuery{
		period:   strings.ToLower(q.Get("period")),
		scope:    strings.ToLower(q.Get("scope")),
		district: strings.TrimSpace(q.Get("district")),
		limit:    queryInt(r, "limit"),
	}
	if lq.period == "" {
		lq.period = "month"
	}
	switch lq.period {
	case "week":
		lq.since = l.clock().AddDate(0, 0, -7)
	case "month":
		lq.since = l.clock().AddDate(0, -1, 0)
	default:
		return lq, errInvalidPeriod
	}

	if lq.scope == "" {
		lq.scope = "all"
	}
	switch lq.scope {
	case "all":
	case "district":
		if lq.district == "" {
			return lq, errors.New("district is required for scope=district")
		}
	case "village":
		if !allowVillage {
			return lq, errInvalidScope
		}
		id, err := primitive.ObjectIDFromHex(q.Get("village"))
		if err != nil {
			return lq, errors.New("a valid village id is required for scope=village")
		}
		lq.village = id
	default:
		return lq, errInvalidScope
	}

	if lq.limit <= 0 {
		lq.limit = defaultLeaderboardLimit
	}
	if lq.limit > maxLeaderboardLimit {
		lq.limit = maxLeaderboardLimit
	}
	return lq, nil
}

// citizenPipeline ranks users by points earned since the start of the period
func citizenPipeline(q leaderboardQuery) mongo.Pipeline {
	match := bson.M{"createdAt": bson.M{"$gte": primitive.NewDateTimeFromTime(q.since)}}
	if q.scope == "village" {
		match["village"] = q.village
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$user",
			"points":  bson.M{"$sum": "$points"},
			"reports": bson.M{"$sum": 1},
		}}},
		{{Key: "$lookup", Value: bson.M{"from": "users", "localField": "_id", "foreignField": "_id", "as": "user"}}},
		{{Key: "$unwind", Value: "$user"}},
	}
	if q.scope == "district" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"user.district": q.district}}})
	}
	return append(pipeline,
		bson.D{{Key: "$project", Value: bson.M{
			"name":     "$user.name",
			"district": "$user.district",
			"points":   1,
			"reports":  1,
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: q.limit}},
	)
}

// villagePipeline ranks villages by the points their citizens earned
func villagePipeline(q leaderboardQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": primitive.NewDateTimeFromTime(q.since)},
			"village":   bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$village",
			"points": bson.M{"$sum": "$points"},
			"users":  bson.M{"$addToSet": "$user"},
		}}},
		{{Key: "$lookup", Value: bson.M{"from": "villages", "localField": "_id", "foreignField": "_id", "as": "village"}}},
		{{Key: "$unwind", Value: "$village"}},
	}
	if q.scope == "district" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"village.district": q.district}}})
	}
	return append(pipeline,
		bson.D{{Key: "$project", Value: bson.M{
			"name":     "$village.name",
			"district": "$village.district",
			"points":   1,
			"citizens": bson.M{"$size": "$users"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: q.limit}},
	)
}

// CitizensLeaderboardHandler ranks citizens for the requested period and scope
func (l Leaderboard) CitizensLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	q, err := l.parseQuery(r, true)
	if err != nil {
		config.ErrorStatus("invalid leaderboard query", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	standings := []models.CitizenStanding{}
	if err := l.PDB.Aggregate(ctx, citizenPipeline(q), &standings); err != nil {
		config.ErrorStatus("failed to build citizen leaderboard", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":      q.period,
		"scope":       q.scope,
		"leaderboard": standings,
	})
}

// VillagesLeaderboardHandler ranks villages for the requested period and scope
func (l Leaderboard) VillagesLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	q, err := l.parseQuery(r, false)
	if err != nil {
		config.ErrorStatus("invalid leaderboard query", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	standings := []models.VillageStanding{}
	if err := l.PDB.Aggregate(ctx, villagePipeline(q), &standings); err != nil {
		config.ErrorStatus("failed to build village leaderboard", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":      q.period,
		"scope":       q.scope,
		"leaderboard": standings,
	})
}
