package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

// Village handles village summaries and administration
type Village struct {
	VDB databases.VillageDatabase
	UDB databases.UserDatabase
	PDB databases.PointDatabase
}

type villageDetailsRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	State       *string  `json:"state"`
	Population  *int     `json:"population" validate:"omitempty,gte=0"`
	HeadName    *string  `json:"headName"`
	Contact     *string  `json:"contact"`
	Description *string  `json:"description"`
	Facilities  []string `json:"facilities"`
}

// VillageSummaryHandler returns a village with its citizen and worker counts and points
func (v Village) VillageSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	village, err := v.VDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("village not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get village", http.StatusInternalServerError, w, err)
		return
	}

	citizens, err := v.UDB.CountDocuments(ctx, bson.M{"village": id, "role": models.RoleCitizen})
	if err != nil {
		config.ErrorStatus("failed to count citizens", http.StatusInternalServerError, w, err)
		return
	}
	workers, err := v.UDB.CountDocuments(ctx, bson.M{"village": id, "role": models.RoleWorker})
	if err != nil {
		config.ErrorStatus("failed to count workers", http.StatusInternalServerError, w, err)
		return
	}

	var totals []struct {
		Points int `bson:"points"`
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"village": id}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "points": bson.M{"$sum": "$points"}}}},
	}
	if err := v.PDB.Aggregate(ctx, pipeline, &totals); err != nil {
		config.ErrorStatus("failed to total village points", http.StatusInternalServerError, w, err)
		return
	}

	summary := models.VillageSummary{Village: *village, Citizens: citizens, Workers: workers}
	if len(totals) > 0 {
		summary.TotalPoints = totals[0].Points
	}
	writeJSON(w, http.StatusOK, summary)
}

// VillageWorkersHandler lists the active workers attached to a village
func (v Village) VillageWorkersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	workers, err := v.UDB.Find(ctx, bson.M{"village": id, "role": models.RoleWorker, "isActive": true})
	if err != nil {
		config.ErrorStatus("failed to get workers", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workers": workers})
}

// UpdateVillageDetailsHandler edits a village. Village admins may only edit their own.
func (v Village) UpdateVillageDetailsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	var req villageDetailsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid village details", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if p.Role == models.RoleVillageAdmin {
		admin, err := v.UDB.FindOne(ctx, bson.M{"_id": p.UserID})
		if err != nil && !isNotFound(err) {
			config.ErrorStatus("failed to get admin", http.StatusInternalServerError, w, err)
			return
		}
		if admin == nil || admin.Village == nil || *admin.Village != id {
			config.ErrorStatus("not allowed to edit this village", http.StatusForbidden, w, api.ErrForbidden)
			return
		}
	}

	set := bson.M{"updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.State != nil {
		set["state"] = *req.State
	}
	if req.Population != nil {
		set["population"] = *req.Population
	}
	if req.HeadName != nil {
		set["headName"] = *req.HeadName
	}
	if req.Contact != nil {
		set["contact"] = *req.Contact
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Facilities != nil {
		set["facilities"] = req.Facilities
	}

	res, err := v.VDB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update village", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("village not found", http.StatusNotFound, w, nil)
		return
	}

	village, err := v.VDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		config.ErrorStatus("failed to get village", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, village)
}

// CreateVillageHandler registers a new village
func (v Village) CreateVillageHandler(w http.ResponseWriter, r *http.Request) {
	var village models.Village
	if err := decodeAndValidate(r, &village); err != nil {
		config.ErrorStatus("invalid village", http.StatusBadRequest, w, err)
		return
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	village.ID = primitive.NewObjectID()
	village.CreatedAt = now
	village.UpdatedAt = now

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := v.VDB.InsertOne(ctx, village); err != nil {
		config.ErrorStatus("failed to create village", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, village)
}
