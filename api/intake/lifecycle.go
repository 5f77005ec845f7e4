package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

const (
	// ReportPoints is awarded to the reporter every time the points step fires
	ReportPoints = 20
	// ActionReportSubmitted is the ledger action recorded for report points
	ActionReportSubmitted = "report_submitted"
)

var (
	// ErrReportNotFound is returned when a save targets a report that no longer exists
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidWorker is returned when the assignment target is not an active, verified worker
	ErrInvalidWorker = errors.New("assignee must be an active, verified worker")
)

// PointsPolicy decides which saves award points to the reporter
type PointsPolicy int

const (
	// AwardOnEverySave awards points after the insert and after every later save
	AwardOnEverySave PointsPolicy = iota
	// AwardOnCreate awards points once, after the initial insert
	AwardOnCreate
)

// ParsePointsPolicy maps the POINTS_AWARD_POLICY setting to a policy
func ParsePointsPolicy(s string) PointsPolicy {
	if s == "create-only" {
		return AwardOnCreate
	}
	return AwardOnEverySave
}

// Escalation names the tier a report was routed to
type Escalation string

// Escalation tiers, in the order they are tried
const (
	EscalationDepartment Escalation = "department-admin"
	EscalationState      Escalation = "state-admin"
	EscalationNone       Escalation = "unassigned"
)

// Assignment is the outcome of auto-assignment
type Assignment struct {
	Level    Escalation   `json:"escalation"`
	Assignee *models.User `json:"-"`
}

// Lifecycle owns every write to a report: create, save, routing and assignment.
// The pre-save and post-save steps run explicitly from here.
type Lifecycle struct {
	Reports databases.ReportDatabase
	Users   databases.UserDatabase
	Points  databases.PointDatabase
	Policy  PointsPolicy
}

// Create prepares and inserts a new report, then runs the post-save step
func (l Lifecycle) Create(ctx context.Context, report *models.Report, reporter models.User) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	report.ReportedBy = reporter.ID
	if err := PrepareReport(report); err != nil {
		return err
	}

	if _, err := l.Reports.InsertOne(ctx, *report); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	l.afterSave(ctx, *report, reporter.Village, true)
	return nil
}

// Save re-validates and replaces an existing report, then runs the post-save step
func (l Lifecycle) Save(ctx context.Context, report *models.Report) error {
	return l.SaveWhere(ctx, report, bson.M{"_id": report.ID})
}

// SaveWhere is Save with the replace limited to filter. A report that no
// longer matches filter is left untouched and ErrReportNotFound is returned.
func (l Lifecycle) SaveWhere(ctx context.Context, report *models.Report, filter bson.M) error {
	if err := PrepareReport(report); err != nil {
		return err
	}

	res, err := l.Reports.ReplaceOne(ctx, filter, *report)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if res != nil && res.MatchedCount == 0 {
		return ErrReportNotFound
	}

	if l.Policy == AwardOnEverySave {
		l.afterSave(ctx, *report, l.reporterVillage(ctx, report.ReportedBy), false)
	}
	return nil
}

// AutoAssign routes a freshly created report: first to a department admin in the
// reporter's district, then to any state admin. A failed lookup leaves the report
// pending and unassigned until someone assigns it by hand.
func (l Lifecycle) AutoAssign(ctx context.Context, report *models.Report, reporter models.User) (Assignment, error) {
	admin, err := l.Users.FindOne(ctx, bson.M{
		"role":             models.RoleDepartmentAdmin,
		"department":       report.Department,
		"assignedDistrict": reporter.District,
		"isActive":         true,
		"accountVerified":  true,
	})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return Assignment{Level: EscalationNone}, fmt.Errorf("failed to look up department admin: %w", err)
	}
	if admin != nil {
		prev := *report
		report.AssignedTo = &admin.ID
		report.Status = models.StatusInProgress
		if err := l.Save(ctx, report); err != nil {
			*report = prev
			return Assignment{Level: EscalationNone}, err
		}
		return Assignment{Level: EscalationDepartment, Assignee: admin}, nil
	}

	stateAdmin, err := l.Users.FindOne(ctx, bson.M{
		"role":            models.RoleStateAdmin,
		"isActive":        true,
		"accountVerified": true,
	})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return Assignment{Level: EscalationNone}, fmt.Errorf("failed to look up state admin: %w", err)
	}
	if stateAdmin != nil {
		prev := *report
		report.AssignedTo = &stateAdmin.ID
		// stays pending: a state admin holds it until a department picks it up
		report.Status = models.StatusPending
		if err := l.Save(ctx, report); err != nil {
			*report = prev
			return Assignment{Level: EscalationNone}, err
		}
		return Assignment{Level: EscalationState, Assignee: stateAdmin}, nil
	}

	return Assignment{Level: EscalationNone}, nil
}

// AssignWorker hands a report to a worker and moves it to in-progress,
// whatever status it held before
func (l Lifecycle) AssignWorker(ctx context.Context, report *models.Report, worker models.User) error {
	if worker.Role != models.RoleWorker || !worker.IsActive || !worker.AccountVerified {
		return ErrInvalidWorker
	}
	report.AssignedTo = &worker.ID
	report.Status = models.StatusInProgress
	return l.Save(ctx, report)
}

// UpdateStatus moves a report to a new status, stamping resolvedAt on resolution
func (l Lifecycle) UpdateStatus(ctx context.Context, report *models.Report, status string) error {
	if !IsStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	report.Status = status
	if status == models.StatusResolved {
		resolvedAt := primitive.NewDateTimeFromTime(time.Now())
		report.ResolvedAt = &resolvedAt
	}
	return l.Save(ctx, report)
}

func (l Lifecycle) reporterVillage(ctx context.Context, userID primitive.ObjectID) *primitive.ObjectID {
	reporter, err := l.Users.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		zap.S().Warnw("failed to look up reporter village", "userId", userID.Hex(), "error", err)
		return nil
	}
	return reporter.Village
}

// afterSave records the reporter's points. A ledger failure is logged and never
// undoes the save that triggered it.
func (l Lifecycle) afterSave(ctx context.Context, report models.Report, village *primitive.ObjectID, created bool) {
	reportID := report.ID
	point := models.GoodCitizenPoint{
		ID:        primitive.NewObjectID(),
		User:      report.ReportedBy,
		Village:   village,
		Report:    &reportID,
		Points:    ReportPoints,
		Action:    ActionReportSubmitted,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := l.Points.InsertOne(ctx, point); err != nil {
		zap.S().Errorw("failed to award report points",
			"reportId", report.ID.Hex(),
			"userId", report.ReportedBy.Hex(),
			"created", created,
			"error", err)
	}
}
