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

// Feedback handles user feedback on the service and on reports
type Feedback struct {
	FDB databases.FeedbackDatabase
}

type createFeedbackRequest struct {
	Report  string `json:"report" validate:"omitempty,len=24,hexadecimal"`
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Message string `json:"message" validate:"required"`
}

// CreateFeedbackHandler stores feedback from the caller
func (f Feedback) CreateFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createFeedbackRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid feedback", http.StatusBadRequest, w, err)
		return
	}

	fb := models.Feedback{
		ID:        primitive.NewObjectID(),
		User:      p.UserID,
		Rating:    req.Rating,
		Message:   req.Message,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}
	if req.Report != "" {
		id, _ := primitive.ObjectIDFromHex(req.Report)
		fb.Report = &id
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := f.FDB.InsertOne(ctx, fb); err != nil {
		config.ErrorStatus("failed to save feedback", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// FeedbackHandler lists feedback, newest first
func (f Feedback) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if rep := r.URL.Query().Get("report"); rep != "" {
		id, err := objectID(rep)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		filter["report"] = id
	}
	opts, limit, page := databases.Paginate(queryInt(r, "limit"), queryInt(r, "page"))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	feedback, err := f.FDB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get feedback", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feedback": feedback, "page": page, "limit": limit})
}
