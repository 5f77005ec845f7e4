package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/api/intake"
	"github.com/civicreport/civic-report-api/api/notify"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
	templates "github.com/civicreport/civic-report-api/templates/html"
)

var errWorkerNotFound = errors.New("worker not found")

// Department handles the admin views of a department's reports and workers
type Department struct {
	RDB       databases.ReportDatabase
	UDB       databases.UserDatabase
	Lifecycle intake.Lifecycle
	Notifier  *notify.Notifier
	Hub       Pusher
}

type assignRequest struct {
	WorkerID string `json:"workerId" validate:"required,len=24,hexadecimal"`
}

// scope returns the report filter an admin may see. A nil filter means the
// caller has no department scope.
func (d Department) scope(ctx context.Context, p api.Principal) (bson.M, error) {
	switch p.Role {
	case models.RoleStateAdmin:
		return bson.M{}, nil
	case models.RoleDepartmentAdmin, models.RoleDistrictAdmin:
		admin, err := d.UDB.FindOne(ctx, bson.M{"_id": p.UserID})
		if err != nil {
			return nil, err
		}
		if p.Role == models.RoleDistrictAdmin {
			return bson.M{"district": admin.AssignedDistrict}, nil
		}
		return bson.M{"department": admin.Department, "district": admin.AssignedDistrict}, nil
	}
	return nil, nil
}

// DepartmentReportsHandler lists reports in the caller's department and district
func (d Department) DepartmentReportsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter, err := d.scope(ctx, p)
	if err != nil {
		config.ErrorStatus("failed to get admin", http.StatusInternalServerError, w, err)
		return
	}
	if filter == nil {
		config.ErrorStatus("not allowed to list department reports", http.StatusForbidden, w, api.ErrForbidden)
		return
	}
	if status := intake.Slugify(r.URL.Query().Get("status")); status != "" {
		if !intake.IsStatus(status) {
			config.ErrorStatus("invalid status filter", http.StatusBadRequest, w, intake.ErrInvalidStatus)
			return
		}
		filter["status"] = status
	}

	opts, limit, page := databases.Paginate(queryInt(r, "limit"), queryInt(r, "page"))
	reports, err := d.RDB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get reports", http.StatusInternalServerError, w, err)
		return
	}
	total, err := d.RDB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count reports", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportListResponse{Reports: reports, Page: page, Limit: limit, Total: total})
}

// WorkersHandler lists the active, verified workers an admin can assign
func (d Department) WorkersHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"role": models.RoleWorker, "isActive": true, "accountVerified": true}
	switch p.Role {
	case models.RoleStateAdmin:
		if dep := r.URL.Query().Get("department"); dep != "" {
			filter["department"] = dep
		}
		if district := r.URL.Query().Get("district"); district != "" {
			filter["assignedDistrict"] = district
		}
	case models.RoleDepartmentAdmin:
		admin, err := d.UDB.FindOne(ctx, bson.M{"_id": p.UserID})
		if err != nil {
			config.ErrorStatus("failed to get admin", http.StatusInternalServerError, w, err)
			return
		}
		filter["department"] = admin.Department
		filter["assignedDistrict"] = admin.AssignedDistrict
	default:
		config.ErrorStatus("not allowed to list workers", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	workers, err := d.UDB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get workers", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workers": workers})
}

// AssignReportHandler hands a report to a worker. Concurrent assignments are
// last-write-wins.
func (d Department) AssignReportHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := api.Authorize(p.Role, api.ObjReport, api.ActAssign); err != nil {
		config.ErrorStatus("only department or state admins can assign reports", http.StatusForbidden, w, err)
		return
	}

	reportID, err := objectID(mux.Vars(r)["reportId"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	var req assignRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("workerId is required", http.StatusBadRequest, w, err)
		return
	}
	workerID, _ := primitive.ObjectIDFromHex(req.WorkerID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := d.RDB.FindOne(ctx, bson.M{"_id": reportID})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("report not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get report", http.StatusInternalServerError, w, err)
		return
	}
	worker, err := d.UDB.FindOne(ctx, bson.M{"_id": workerID})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("invalid worker", http.StatusBadRequest, w, errWorkerNotFound)
			return
		}
		config.ErrorStatus("failed to get worker", http.StatusInternalServerError, w, err)
		return
	}

	if err := d.Lifecycle.AssignWorker(ctx, report, *worker); err != nil {
		writeLifecycleError(w, "failed to assign report", err)
		return
	}

	push(d.Hub, worker.ID, EventReportAssigned, report)
	d.notifyAssignment(ctx, *report, *worker)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "report assigned successfully",
		"report":  report,
	})
}

// notifyAssignment emails the citizen and the worker in the background
func (d Department) notifyAssignment(ctx context.Context, report models.Report, worker models.User) {
	if d.Notifier == nil {
		return
	}
	data := reportEmailData(report)
	var msgs []notify.Email

	citizen, err := d.UDB.FindOne(ctx, bson.M{"_id": report.ReportedBy})
	if err != nil {
		zap.S().Warnw("failed to look up reporter for assignment email", "reportId", report.ID.Hex(), "error", err)
	} else {
		msgs = append(msgs, notify.Email{
			ToName:  citizen.Name,
			To:      citizen.Email,
			Subject: "A worker has been assigned to your report",
			Text:    worker.Name + " has been assigned to your report.",
			HTML:    templates.RenderWorkerAssignedEmail(citizen.Name, worker.Name, data),
		})
	}
	msgs = append(msgs, notify.Email{
		ToName:  worker.Name,
		To:      worker.Email,
		Subject: "New report assigned to you",
		Text:    "A new " + report.Category + " report at " + report.Location + " has been assigned to you.",
		HTML:    templates.RenderNewAssignmentEmail(worker.Name, data),
	})

	go notify.Drain(d.Notifier.Deliver(context.WithoutCancel(ctx), msgs...))
}
