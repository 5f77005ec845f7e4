package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

// Dashboard serves the per-role aggregate views
type Dashboard struct {
	RDB databases.ReportDatabase
	UDB databases.UserDatabase
	PDB databases.PointDatabase
}

// DashboardResponse is the body of every dashboard endpoint. Breakdowns that do
// not apply to a role are omitted.
type DashboardResponse struct {
	Scope        map[string]string `json:"scope,omitempty"`
	Total        int64             `json:"total"`
	ByStatus     map[string]int64  `json:"byStatus"`
	ByDepartment map[string]int64  `json:"byDepartment,omitempty"`
	ByDistrict   map[string]int64  `json:"byDistrict,omitempty"`
	TotalPoints  *int              `json:"totalPoints,omitempty"`
}

// countBy groups the matched reports by field
func (d Dashboard) countBy(ctx context.Context, match bson.M, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	var rows []models.StatusCount
	if err := d.RDB.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

func (d Dashboard) build(ctx context.Context, match bson.M, breakdowns ...string) (DashboardResponse, error) {
	resp := DashboardResponse{}
	byStatus, err := d.countBy(ctx, match, "status")
	if err != nil {
		return resp, err
	}
	for _, status := range models.ReportStatuses {
		if _, ok := byStatus[status]; !ok {
			byStatus[status] = 0
		}
	}
	resp.ByStatus = byStatus
	for _, n := range byStatus {
		resp.Total += n
	}

	for _, field := range breakdowns {
		counts, err := d.countBy(ctx, match, field)
		if err != nil {
			return resp, err
		}
		switch field {
		case "department":
			resp.ByDepartment = counts
		case "district":
			resp.ByDistrict = counts
		}
	}
	return resp, nil
}

func (d Dashboard) userPoints(ctx context.Context, match bson.M) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "points": bson.M{"$sum": "$points"}}}},
	}
	var rows []struct {
		Points int `bson:"points"`
	}
	if err := d.PDB.Aggregate(ctx, pipeline, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Points, nil
}

// CitizenDashboardHandler shows the caller's own reports and points
func (d Dashboard) CitizenDashboardHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	resp, err := d.build(ctx, bson.M{"reportedBy": p.UserID})
	if err != nil {
		config.ErrorStatus("failed to build citizen dashboard", http.StatusInternalServerError, w, err)
		return
	}
	points, err := d.userPoints(ctx, bson.M{"user": p.UserID})
	if err != nil {
		config.ErrorStatus("failed to total points", http.StatusInternalServerError, w, err)
		return
	}
	resp.TotalPoints = &points
	writeJSON(w, http.StatusOK, resp)
}

// WorkerDashboardHandler shows the reports assigned to the caller
func (d Dashboard) WorkerDashboardHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	resp, err := d.build(ctx, bson.M{"assignedTo": p.UserID})
	if err != nil {
		config.ErrorStatus("failed to build worker dashboard", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DepartmentDashboardHandler shows the caller's department within their district
func (d Dashboard) DepartmentDashboardHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := d.admin(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	resp, err := d.build(ctx, bson.M{"department": admin.Department, "district": admin.AssignedDistrict})
	if err != nil {
		config.ErrorStatus("failed to build department dashboard", http.StatusInternalServerError, w, err)
		return
	}
	resp.Scope = map[string]string{"department": admin.Department, "district": admin.AssignedDistrict}
	writeJSON(w, http.StatusOK, resp)
}

// DistrictDashboardHandler shows every department within the caller's district
func (d Dashboard) DistrictDashboardHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := d.admin(w, r)
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	resp, err := d.build(ctx, bson.M{"district": admin.AssignedDistrict}, "department")
	if err != nil {
		config.ErrorStatus("failed to build district dashboard", http.StatusInternalServerError, w, err)
		return
	}
	resp.Scope = map[string]string{"district": admin.AssignedDistrict}
	writeJSON(w, http.StatusOK, resp)
}

// StateDashboardHandler shows every report in the state
func (d Dashboard) StateDashboardHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := principal(w, r); !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	resp, err := d.build(ctx, bson.M{}, "department", "district")
	if err != nil {
		config.ErrorStatus("failed to build state dashboard", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Dashboard) admin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	p, ok := principal(w, r)
	if !ok {
		return nil, false
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	admin, err := d.UDB.FindOne(ctx, bson.M{"_id": p.UserID})
	if err != nil {
		if isNotFound(err) {
			writeUnauthorized(w)
			return nil, false
		}
		config.ErrorStatus("failed to get admin", http.StatusInternalServerError, w, err)
		return nil, false
	}
	return admin, true
}
