package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/api/intake"
	"github.com/civicreport/civic-report-api/api/media"
	"github.com/civicreport/civic-report-api/api/notify"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
	templates "github.com/civicreport/civic-report-api/templates/html"
)

const maxUploadMemory = 32 << 20

// Report handles report intake and the reporter-facing report endpoints
type Report struct {
	RDB       databases.ReportDatabase
	UDB       databases.UserDatabase
	Lifecycle intake.Lifecycle
	Media     media.Uploader
	Notifier  *notify.Notifier
	Hub       Pusher
	SpoolDir  string
}

// Routing summarises where a new report was sent
type Routing struct {
	Department string              `json:"department"`
	AssignedTo *primitive.ObjectID `json:"assignedTo"`
	Status     string              `json:"status"`
	Escalation intake.Escalation   `json:"escalation"`
}

type createReportResponse struct {
	Message string        `json:"message"`
	Report  models.Report `json:"report"`
	Routing Routing       `json:"routing"`
}

type reportListResponse struct {
	Reports []models.Report `json:"reports"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Total   int64           `json:"total"`
}

// CreateReportHandler accepts a multipart report, stores its media, persists it
// and routes it
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	category := r.FormValue("category")
	location := r.FormValue("location")
	urgency := r.FormValue("urgencylevel")
	description := strings.TrimSpace(r.FormValue("description"))
	if category == "" || location == "" || urgency == "" {
		config.ErrorStatus("category, location and urgencylevel are required", http.StatusBadRequest, w, nil)
		return
	}

	voice, voiceHeader, voiceErr := r.FormFile("voice")
	if voiceErr == nil {
		defer voice.Close()
	}
	if description == "" && voiceErr != nil {
		config.ErrorStatus("either a description or a voice recording is required", http.StatusBadRequest, w, intake.ErrMissingContent)
		return
	}

	image, imageHeader, err := r.FormFile("image")
	if err != nil {
		config.ErrorStatus("image is required", http.StatusBadRequest, w, err)
		return
	}
	defer image.Close()

	// reject bad classifications before anything is uploaded
	if err := intake.CheckClassification(category, urgency, r.FormValue("department")); err != nil {
		config.ErrorStatus("invalid report", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reporter, err := re.UDB.FindOne(ctx, bson.M{"_id": p.UserID})
	if err != nil {
		if isNotFound(err) {
			writeUnauthorized(w)
			return
		}
		config.ErrorStatus("failed to get reporter", http.StatusInternalServerError, w, err)
		return
	}

	if re.Media == nil {
		config.ErrorStatus("media storage is not configured", http.StatusInternalServerError, w, media.ErrNotConfigured)
		return
	}
	spool := media.NewSpool(re.SpoolDir)
	defer spool.Cleanup()

	imagePath, err := spool.Save(image, imageHeader)
	if err != nil {
		config.ErrorStatus("failed to store image", http.StatusInternalServerError, w, err)
		return
	}
	var voicePath string
	if voiceErr == nil {
		if voicePath, err = spool.Save(voice, voiceHeader); err != nil {
			config.ErrorStatus("failed to store voice recording", http.StatusInternalServerError, w, err)
			return
		}
	}

	img, err := re.Media.Upload(r.Context(), imagePath, media.ResourceImage)
	if err != nil {
		config.ErrorStatus("failed to upload image", http.StatusInternalServerError, w, err)
		return
	}
	var audio media.Asset
	if voicePath != "" {
		if audio, err = re.Media.Upload(r.Context(), voicePath, media.ResourceVoice); err != nil {
			config.ErrorStatus("failed to upload voice recording", http.StatusInternalServerError, w, err)
			return
		}
	}

	report := models.Report{
		Category:      category,
		Department:    intake.Slugify(r.FormValue("department")),
		District:      strings.TrimSpace(r.FormValue("district")),
		Description:   description,
		VoiceURL:      audio.URL,
		VoicePublicID: audio.PublicID,
		Location:      location,
		Coordinates:   parseCoordinates(r.FormValue("latitude"), r.FormValue("longitude")),
		ImgURL:        img.URL,
		ImgPublicID:   img.PublicID,
		UrgencyLevel:  urgency,
	}
	if report.District == "" {
		report.District = reporter.District
	}

	if err := re.Lifecycle.Create(ctx, &report, *reporter); err != nil {
		re.destroyMedia(context.WithoutCancel(r.Context()), report)
		writeLifecycleError(w, "failed to create report", err)
		return
	}
	re.notify(r.Context(), notify.Email{
		ToName:  reporter.Name,
		To:      reporter.Email,
		Subject: "Your report has been received",
		Text:    "Your report has been received and routed to the " + report.Department + " department.",
		HTML:    templates.RenderReportReceivedEmail(reporter.Name, reportEmailData(report)),
	})

	assignment, err := re.Lifecycle.AutoAssign(ctx, &report, *reporter)
	if err != nil {
		zap.S().Errorw("auto assignment failed", "reportId", report.ID.Hex(), "error", err)
	}
	if assignment.Assignee != nil {
		push(re.Hub, assignment.Assignee.ID, EventReportAssigned, report)
		if assignment.Level == intake.EscalationDepartment {
			re.notify(r.Context(), notify.Email{
				ToName:  reporter.Name,
				To:      reporter.Email,
				Subject: "Your report is in progress",
				Text:    "Your report has been assigned to " + assignment.Assignee.Name + ".",
				HTML:    templates.RenderReportRoutedEmail(reporter.Name, assignment.Assignee.Name, reportEmailData(report)),
			})
		}
	}
	if assignment.Level == "" {
		assignment.Level = intake.EscalationNone
	}

	writeJSON(w, http.StatusCreated, createReportResponse{
		Message: "report created successfully",
		Report:  report,
		Routing: Routing{
			Department: report.Department,
			AssignedTo: report.AssignedTo,
			Status:     report.Status,
			Escalation: assignment.Level,
		},
	})
}

// MyReportsHandler lists the caller's reports, newest first
func (re Report) MyReportsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	opts, limit, page := databases.Paginate(queryInt(r, "limit"), queryInt(r, "page"))
	filter := bson.M{"reportedBy": p.UserID}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reports, err := re.RDB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get reports", http.StatusInternalServerError, w, err)
		return
	}
	total, err := re.RDB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count reports", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportListResponse{Reports: reports, Page: page, Limit: limit, Total: total})
}

// ReportByIDHandler returns a report to its reporter, its assignee or an admin
func (re Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := re.RDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("report not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get report", http.StatusInternalServerError, w, err)
		return
	}
	visible := report.ReportedBy == p.UserID ||
		(report.AssignedTo != nil && *report.AssignedTo == p.UserID) ||
		models.IsAdmin(p.Role)
	if !visible {
		config.ErrorStatus("report not found", http.StatusNotFound, w, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type updateReportRequest struct {
	Description  *string `json:"description"`
	Location     *string `json:"location"`
	UrgencyLevel *string `json:"urgencylevel"`
	District     *string `json:"district"`
}

// UpdateReportHandler edits one of the caller's pending reports
func (re Report) UpdateReportHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	var req updateReportRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := re.RDB.FindOne(ctx, ownPendingReport(id, p.UserID))
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("report not found or no longer editable", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get report", http.StatusInternalServerError, w, err)
		return
	}

	if req.Description != nil {
		report.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		report.Location = strings.TrimSpace(*req.Location)
	}
	if req.UrgencyLevel != nil {
		report.UrgencyLevel = *req.UrgencyLevel
	}
	if req.District != nil {
		report.District = strings.TrimSpace(*req.District)
	}

	// an assignment landing between the read and the write must not be undone
	guard := ownPendingReport(id, p.UserID)
	guard["assignedTo"] = report.AssignedTo
	if err := re.Lifecycle.SaveWhere(ctx, report, guard); err != nil {
		if errors.Is(err, intake.ErrReportNotFound) {
			config.ErrorStatus("report not found or no longer editable", http.StatusNotFound, w, err)
			return
		}
		writeLifecycleError(w, "failed to update report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteReportHandler removes one of the caller's pending reports and its media
func (re Report) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := ownPendingReport(id, p.UserID)
	report, err := re.RDB.FindOne(ctx, filter)
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("report not found or no longer deletable", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get report", http.StatusInternalServerError, w, err)
		return
	}
	res, err := re.RDB.DeleteOne(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to delete report", http.StatusInternalServerError, w, err)
		return
	}
	if res.DeletedCount == 0 {
		config.ErrorStatus("report not found or no longer deletable", http.StatusNotFound, w, nil)
		return
	}

	re.destroyMedia(r.Context(), *report)
	writeJSON(w, http.StatusOK, map[string]string{"message": "report deleted successfully"})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatusHandler moves a report through its lifecycle. Workers may only
// touch reports assigned to them and department admins only their department.
func (re Report) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	var req statusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("status is required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := re.RDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("report not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get report", http.StatusInternalServerError, w, err)
		return
	}

	allowed, err := re.mayUpdateStatus(ctx, p, *report)
	if err != nil {
		config.ErrorStatus("failed to get caller", http.StatusInternalServerError, w, err)
		return
	}
	if !allowed {
		config.ErrorStatus("not allowed to update this report", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	if err := re.Lifecycle.UpdateStatus(ctx, report, intake.Slugify(req.Status)); err != nil {
		writeLifecycleError(w, "failed to update status", err)
		return
	}
	push(re.Hub, report.ReportedBy, EventReportStatus, map[string]interface{}{
		"reportId": report.ID.Hex(),
		"status":   report.Status,
	})
	writeJSON(w, http.StatusOK, report)
}

func (re Report) mayUpdateStatus(ctx context.Context, p api.Principal, report models.Report) (bool, error) {
	assignedToCaller := report.AssignedTo != nil && *report.AssignedTo == p.UserID
	switch p.Role {
	case models.RoleStateAdmin:
		return true, nil
	case models.RoleWorker:
		return assignedToCaller, nil
	case models.RoleDepartmentAdmin:
		if assignedToCaller {
			return true, nil
		}
		admin, err := re.UDB.FindOne(ctx, bson.M{"_id": p.UserID})
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return admin.Department == report.Department && admin.AssignedDistrict == report.District, nil
	}
	return false, nil
}

func (re Report) destroyMedia(ctx context.Context, report models.Report) {
	if re.Media == nil {
		return
	}
	if err := re.Media.Destroy(ctx, report.ImgPublicID, media.ResourceImage); err != nil {
		zap.S().Warnw("failed to delete report image", "reportId", report.ID.Hex(), "error", err)
	}
	if err := re.Media.Destroy(ctx, report.VoicePublicID, media.ResourceVoice); err != nil {
		zap.S().Warnw("failed to delete report voice", "reportId", report.ID.Hex(), "error", err)
	}
}

func (re Report) notify(ctx context.Context, msgs ...notify.Email) {
	if re.Notifier == nil {
		return
	}
	re.Notifier.DeliverAndLog(context.WithoutCancel(ctx), msgs...)
}

func ownPendingReport(id, userID primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "reportedBy": userID, "status": models.StatusPending}
}

func parseCoordinates(lat, lng string) *models.Coordinates {
	if lat == "" || lng == "" {
		return nil
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lng, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &models.Coordinates{Latitude: la, Longitude: lo}
}

func reportEmailData(r models.Report) templates.ReportEmailData {
	return templates.ReportEmailData{
		ReportID:     r.ID.Hex(),
		Category:     r.Category,
		Department:   r.Department,
		Location:     r.Location,
		UrgencyLevel: r.UrgencyLevel,
		Status:       r.Status,
		Description:  r.Description,
	}
}

// writeLifecycleError maps intake errors onto HTTP statuses
func writeLifecycleError(w http.ResponseWriter, message string, err error) {
	switch {
	case intake.IsValidation(err):
		config.ErrorStatus(message, http.StatusBadRequest, w, err)
	case errors.Is(err, intake.ErrReportNotFound):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}
