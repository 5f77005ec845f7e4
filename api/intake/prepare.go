package intake

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicreport/civic-report-api/models"
)

// DefaultDistrict is stored when neither the request nor the reporter names a district
const DefaultDistrict = "Unknown"

var (
	// ErrMissingContent is returned when a report has neither description nor voice
	ErrMissingContent = errors.New("either a description or a voice recording is required")
	// ErrInvalidCategory is returned for a category outside the known set
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidUrgency is returned for an urgency level outside low/medium/high/critical
	ErrInvalidUrgency = errors.New("invalid urgency level")
	// ErrInvalidDepartment is returned for a department outside the known set
	ErrInvalidDepartment = errors.New("invalid department")
	// ErrInvalidStatus is returned for a status outside the report lifecycle
	ErrInvalidStatus = errors.New("invalid status")
	// ErrMissingLocation is returned when a report has no location
	ErrMissingLocation = errors.New("location is required")
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumerics into a single dash
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PrepareReport normalises and validates a report before it is written.
// It runs before every save, not only the first one.
func PrepareReport(r *models.Report) error {
	r.Category = Slugify(r.Category)
	r.UrgencyLevel = Slugify(r.UrgencyLevel)

	if r.Department == "" {
		r.Department = DepartmentByCategory(r.Category)
	}

	if strings.TrimSpace(r.Description) == "" && r.VoiceURL == "" {
		return ErrMissingContent
	}

	if !IsCategory(r.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, r.Category)
	}
	priority, ok := models.UrgencyLevels[r.UrgencyLevel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidUrgency, r.UrgencyLevel)
	}
	if !IsDepartment(r.Department) {
		return fmt.Errorf("%w: %q", ErrInvalidDepartment, r.Department)
	}
	if strings.TrimSpace(r.Location) == "" {
		return ErrMissingLocation
	}

	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if !IsStatus(r.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if r.District == "" {
		r.District = DefaultDistrict
	}
	r.Priority = priority

	now := primitive.NewDateTimeFromTime(time.Now())
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return nil
}

// CheckClassification validates the caller supplied category, urgency and
// optional department the same way PrepareReport will
func CheckClassification(category, urgency, department string) error {
	if c := Slugify(category); !IsCategory(c) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	if u := Slugify(urgency); models.UrgencyLevels[u] == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidUrgency, u)
	}
	if d := Slugify(department); d != "" && !IsDepartment(d) {
		return fmt.Errorf("%w: %q", ErrInvalidDepartment, d)
	}
	return nil
}

// IsStatus reports whether s is a valid report status
func IsStatus(s string) bool {
	for _, known := range models.ReportStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// IsValidation reports whether err came from report validation rather than storage
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingContent, ErrInvalidCategory, ErrInvalidUrgency,
		ErrInvalidDepartment, ErrInvalidStatus, ErrMissingLocation, ErrInvalidWorker,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
