package handlers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

// Event handles community events announced by admins
type Event struct {
	EDB databases.EventDatabase
}

type createEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Village     string    `json:"village" validate:"omitempty,len=24,hexadecimal"`
	District    string    `json:"district" validate:"required_without=Village"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
}

// CreateEventHandler announces an event for a village or district
func (e Event) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createEventRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid event", http.StatusBadRequest, w, err)
		return
	}

	event := models.Event{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		District:    req.District,
		Location:    req.Location,
		StartsAt:    primitive.NewDateTimeFromTime(req.StartsAt),
		CreatedBy:   p.UserID,
		CreatedAt:   primitive.NewDateTimeFromTime(time.Now()),
	}
	if req.Village != "" {
		v, _ := primitive.ObjectIDFromHex(req.Village)
		event.Village = &v
	}
	if err := validate.Struct(event); err != nil {
		config.ErrorStatus("invalid event", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := e.EDB.InsertOne(ctx, event); err != nil {
		config.ErrorStatus("failed to create event", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// EventsHandler lists events, optionally filtered by village or district
func (e Event) EventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if v := r.URL.Query().Get("village"); v != "" {
		id, err := objectID(v)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		filter["village"] = id
	}
	if d := r.URL.Query().Get("district"); d != "" {
		filter["district"] = d
	}

	opts, limit, page := databases.Paginate(queryInt(r, "limit"), queryInt(r, "page"))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	events, err := e.EDB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get events", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events, "page": page, "limit": limit})
}
