package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/api/handlers"
	"github.com/civicreport/civic-report-api/api/intake"
	mocksdb "github.com/civicreport/civic-report-api/databases/mocks"
	"github.com/civicreport/civic-report-api/models"
)

var errUploadFailed = errors.New("upload failed")

type reportFixture struct {
	reports  *mocksdb.ReportDatabase
	users    *mocksdb.UserDatabase
	points   *mocksdb.PointDatabase
	uploader *fakeUploader
	hub      *fakePusher
	re       handlers.Report
	citizen  models.User
}

func newReportFixture(t *testing.T) *reportFixture {
	village := primitive.NewObjectID()
	f := &reportFixture{
		reports:  &mocksdb.ReportDatabase{},
		users:    &mocksdb.UserDatabase{},
		points:   &mocksdb.PointDatabase{},
		uploader: &fakeUploader{},
		hub:      &fakePusher{},
		citizen: models.User{
			ID:       primitive.NewObjectID(),
			Name:     "Ravi",
			Email:    "ravi@example.com",
			Role:     models.RoleCitizen,
			District: "Pune",
			Village:  &village,
		},
	}
	lc := intake.Lifecycle{Reports: f.reports, Users: f.users, Points: f.points, Policy: intake.AwardOnCreate}
	f.re = handlers.Report{
		RDB:       f.reports,
		UDB:       f.users,
		Lifecycle: lc,
		Media:     f.uploader,
		Hub:       f.hub,
		SpoolDir:  t.TempDir(),
	}
	return f
}

type multipartFields map[string]string

func createReportRequest(t *testing.T, fields multipartFields, files map[string]string) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("binary-" + field))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest("POST", "/api/v1/reports/create", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields() multipartFields {
	return multipartFields{
		"category":     "Garbage",
		"location":     "Ward 4, MG Road",
		"urgencylevel": "High",
		"description":  "garbage not collected for a week",
		"latitude":     "18.52",
		"longitude":    "73.85",
	}
}

func TestReport_CreateReportHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields multipartFields
		files  map[string]string
		errMsg string
	}{
		{
			name:   "missing category",
			fields: multipartFields{"location": "Ward 4", "urgencylevel": "high", "description": "x"},
			files:  map[string]string{"image": "photo.jpg"},
			errMsg: "category, location and urgencylevel are required",
		},
		{
			name:   "missing location",
			fields: multipartFields{"category": "garbage", "urgencylevel": "high", "description": "x"},
			files:  map[string]string{"image": "photo.jpg"},
			errMsg: "category, location and urgencylevel are required",
		},
		{
			name:   "no description or voice",
			fields: multipartFields{"category": "garbage", "location": "Ward 4", "urgencylevel": "high"},
			files:  map[string]string{"image": "photo.jpg"},
			errMsg: "either a description or a voice recording is required",
		},
		{
			name:   "missing image",
			fields: validFields(),
			errMsg: "image is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture(t)
			req := asCaller(createReportRequest(t, tt.fields, tt.files), f.citizen.ID, models.RoleCitizen)
			rr := httptest.NewRecorder()
			http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.errMsg)
			assert.Empty(t, f.uploader.uploaded)
			f.reports.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
		})
	}
}

func TestReport_CreateReportHandlerInvalidCategory(t *testing.T) {
	f := newReportFixture(t)
	f.users.On("FindOne", mock.Anything, byID(f.citizen.ID)).Return(&f.citizen, nil)

	fields := validFields()
	fields["category"] = "alien-invasion"
	req := asCaller(createReportRequest(t, fields, map[string]string{"image": "photo.jpg"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid category")
	assert.Empty(t, f.uploader.uploaded)
	f.reports.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_CreateReportHandlerRejectsBeforeUpload(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		value  string
		errMsg string
	}{
		{"unknown urgency", "urgencylevel", "apocalyptic", "invalid urgency level"},
		{"unknown department", "department", "ministry-of-magic", "invalid department"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture(t)
			fields := validFields()
			fields[tt.field] = tt.value

			req := asCaller(createReportRequest(t, fields, map[string]string{"image": "photo.jpg", "voice": "note.webm"}), f.citizen.ID, models.RoleCitizen)
			rr := httptest.NewRecorder()
			http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.errMsg)
			assert.Empty(t, f.uploader.uploaded)
			f.users.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
		})
	}
}

func TestReport_CreateReportHandlerInsertFailureDestroysMedia(t *testing.T) {
	f := newReportFixture(t)
	f.users.On("FindOne", mock.Anything, byID(f.citizen.ID)).Return(&f.citizen, nil)
	f.reports.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("write conflict"))

	req := asCaller(createReportRequest(t, validFields(), map[string]string{"image": "photo.jpg", "voice": "note.webm"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.ElementsMatch(t, []string{"image", "video"}, f.uploader.uploaded)
	assert.ElementsMatch(t, []string{"civic-reports/image", "civic-reports/video"}, f.uploader.destroyed)
	f.points.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_CreateReportHandlerRoutesToDepartmentAdmin(t *testing.T) {
	f := newReportFixture(t)
	admin := models.User{ID: primitive.NewObjectID(), Name: "Meera", Role: models.RoleDepartmentAdmin, Department: "sanitation", AssignedDistrict: "Pune"}

	f.users.On("FindOne", mock.Anything, byID(f.citizen.ID)).Return(&f.citizen, nil)
	f.users.On("FindOne", mock.Anything, mock.MatchedBy(func(m bson.M) bool {
		return m["role"] == models.RoleDepartmentAdmin && m["department"] == "sanitation" && m["assignedDistrict"] == "Pune"
	})).Return(&admin, nil)
	f.reports.On("InsertOne", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
		return r.Status == models.StatusPending && r.Category == "garbage" && r.UrgencyLevel == "high"
	})).Return(primitive.NewObjectID(), nil)
	f.reports.On("ReplaceOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	f.points.On("InsertOne", mock.Anything, mock.MatchedBy(func(p models.GoodCitizenPoint) bool {
		return p.User == f.citizen.ID && p.Points == intake.ReportPoints && *p.Village == *f.citizen.Village
	})).Return(primitive.NewObjectID(), nil).Once()

	req := asCaller(createReportRequest(t, validFields(), map[string]string{"image": "photo.jpg", "voice": "note.webm"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Report  models.Report    `json:"report"`
		Routing handlers.Routing `json:"routing"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sanitation", resp.Routing.Department)
	assert.Equal(t, models.StatusInProgress, resp.Routing.Status)
	assert.Equal(t, intake.EscalationDepartment, resp.Routing.Escalation)
	if assert.NotNil(t, resp.Routing.AssignedTo) {
		assert.Equal(t, admin.ID, *resp.Routing.AssignedTo)
	}
	assert.Equal(t, "Pune", resp.Report.District)
	assert.Equal(t, 3, resp.Report.Priority)
	assert.NotEmpty(t, resp.Report.ImgURL)
	assert.NotEmpty(t, resp.Report.VoiceURL)
	if assert.NotNil(t, resp.Report.Coordinates) {
		assert.Equal(t, 18.52, resp.Report.Coordinates.Latitude)
	}
	assert.ElementsMatch(t, []string{"image", "video"}, f.uploader.uploaded)
	assert.Equal(t, []pushed{{userID: admin.ID.Hex(), event: handlers.EventReportAssigned}}, f.hub.events)
	f.points.AssertExpectations(t)
}

func TestReport_CreateReportHandlerEscalatesToStateAdmin(t *testing.T) {
	f := newReportFixture(t)
	stateAdmin := models.User{ID: primitive.NewObjectID(), Name: "Kavita", Role: models.RoleStateAdmin, AccountVerified: true, IsActive: true}

	f.users.On("FindOne", mock.Anything, byID(f.citizen.ID)).Return(&f.citizen, nil)
	f.users.On("FindOne", mock.Anything, mock.MatchedBy(func(m bson.M) bool {
		return m["role"] == models.RoleDepartmentAdmin
	})).Return(nil, mongo.ErrNoDocuments)
	f.users.On("FindOne", mock.Anything, mock.MatchedBy(func(m bson.M) bool {
		return m["role"] == models.RoleStateAdmin
	})).Return(&stateAdmin, nil)
	f.reports.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)
	f.reports.On("ReplaceOne", mock.Anything, mock.Anything, mock.MatchedBy(func(r models.Report) bool {
		return r.AssignedTo != nil && *r.AssignedTo == stateAdmin.ID && r.Status == models.StatusPending
	})).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	f.points.On("InsertOne", mock.Anything, mock.MatchedBy(func(p models.GoodCitizenPoint) bool {
		return p.User == f.citizen.ID && p.Points == 20
	})).Return(primitive.NewObjectID(), nil).Once()

	fields := validFields()
	fields["category"] = "garbage"
	fields["urgencylevel"] = "high"
	req := asCaller(createReportRequest(t, fields, map[string]string{"image": "photo.jpg"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Report  models.Report    `json:"report"`
		Routing handlers.Routing `json:"routing"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sanitation", resp.Routing.Department)
	assert.Equal(t, models.StatusPending, resp.Routing.Status)
	assert.Equal(t, intake.EscalationState, resp.Routing.Escalation)
	if assert.NotNil(t, resp.Routing.AssignedTo) {
		assert.Equal(t, stateAdmin.ID, *resp.Routing.AssignedTo)
	}
	assert.Equal(t, []pushed{{userID: stateAdmin.ID.Hex(), event: handlers.EventReportAssigned}}, f.hub.events)
	f.points.AssertExpectations(t)
}

func TestReport_CreateReportHandlerUnassignedWhenNoAdmins(t *testing.T) {
	f := newReportFixture(t)
	f.users.On("FindOne", mock.Anything, byID(f.citizen.ID)).Return(&f.citizen, nil)
	f.users.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	f.reports.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)
	f.points.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("ledger down"))

	req := asCaller(createReportRequest(t, validFields(), map[string]string{"image": "photo.jpg"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, strings.Contains(rr.Body.String(), `"escalation":"unassigned"`))
	assert.Contains(t, rr.Body.String(), `"status":"pending"`)
	f.reports.AssertNotCalled(t, "ReplaceOne", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.hub.events)
}

func TestReport_CreateReportHandlerImageUploadFails(t *testing.T) {
	f := newReportFixture(t)
	f.uploader.failOn = "image"
	f.users.On("FindOne", mock.Anything, byID(f.citizen.ID)).Return(&f.citizen, nil)

	req := asCaller(createReportRequest(t, validFields(), map[string]string{"image": "photo.jpg"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	f.reports.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func reportRequest(t *testing.T, method, id string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, "/api/v1/reports/"+id, &buf)
	require.NoError(t, err)
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestReport_UpdateReportHandlerNotPending(t *testing.T) {
	f := newReportFixture(t)
	id := primitive.NewObjectID()
	f.reports.On("FindOne", mock.Anything, bson.M{"_id": id, "reportedBy": f.citizen.ID, "status": models.StatusPending}).
		Return(nil, mongo.ErrNoDocuments)

	req := asCaller(reportRequest(t, "PUT", id.Hex(), map[string]string{"description": "updated"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	f.reports.AssertNotCalled(t, "ReplaceOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestReport_UpdateReportHandler(t *testing.T) {
	f := newReportFixture(t)
	report := models.Report{
		ID: primitive.NewObjectID(), Category: "pothole", ReportedBy: f.citizen.ID, Description: "small",
		Location: "Ward 1", UrgencyLevel: "low", Status: models.StatusPending,
	}
	f.reports.On("FindOne", mock.Anything, mock.Anything).Return(&report, nil)
	f.reports.On("ReplaceOne", mock.Anything, bson.M{
		"_id": report.ID, "reportedBy": f.citizen.ID, "status": models.StatusPending, "assignedTo": report.AssignedTo,
	}, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	req := asCaller(reportRequest(t, "PUT", report.ID.Hex(), map[string]string{"description": "now huge", "urgencylevel": "Critical"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "now huge", got.Description)
	assert.Equal(t, "critical", got.UrgencyLevel)
	assert.Equal(t, 4, got.Priority)
	assert.Equal(t, "public-works", got.Department)
}

func TestReport_UpdateReportHandlerLosesRaceWithAssignment(t *testing.T) {
	f := newReportFixture(t)
	report := models.Report{
		ID: primitive.NewObjectID(), Category: "pothole", ReportedBy: f.citizen.ID, Description: "small",
		Location: "Ward 1", UrgencyLevel: "low", Status: models.StatusPending,
	}
	f.reports.On("FindOne", mock.Anything, mock.Anything).Return(&report, nil)
	// the report was assigned after it was read, so the guarded replace matches nothing
	f.reports.On("ReplaceOne", mock.Anything, mock.MatchedBy(func(m bson.M) bool {
		_, guarded := m["assignedTo"]
		return guarded && m["status"] == models.StatusPending
	}), mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	req := asCaller(reportRequest(t, "PUT", report.ID.Hex(), map[string]string{"description": "now huge"}), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	f.points.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_DeleteReportHandlerForeignReport(t *testing.T) {
	f := newReportFixture(t)
	id := primitive.NewObjectID()
	f.reports.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	req := asCaller(reportRequest(t, "DELETE", id.Hex(), nil), primitive.NewObjectID(), models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.DeleteReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	f.reports.AssertNotCalled(t, "DeleteOne", mock.Anything, mock.Anything)
	assert.Empty(t, f.uploader.destroyed)
}

func TestReport_DeleteReportHandler(t *testing.T) {
	f := newReportFixture(t)
	report := models.Report{ID: primitive.NewObjectID(), ReportedBy: f.citizen.ID, ImgPublicID: "civic-reports/img1", Status: models.StatusPending}
	filter := bson.M{"_id": report.ID, "reportedBy": f.citizen.ID, "status": models.StatusPending}
	f.reports.On("FindOne", mock.Anything, filter).Return(&report, nil)
	f.reports.On("DeleteOne", mock.Anything, filter).Return(&mongo.DeleteResult{DeletedCount: 1}, nil)

	req := asCaller(reportRequest(t, "DELETE", report.ID.Hex(), nil), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.DeleteReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"civic-reports/img1"}, f.uploader.destroyed)
}

func TestReport_ReportByIDHandlerHidesOtherCitizensReports(t *testing.T) {
	f := newReportFixture(t)
	report := models.Report{ID: primitive.NewObjectID(), ReportedBy: primitive.NewObjectID()}
	f.reports.On("FindOne", mock.Anything, byID(report.ID)).Return(&report, nil)

	req := asCaller(reportRequest(t, "GET", report.ID.Hex(), nil), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.ReportByIDHandler).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = asCaller(reportRequest(t, "GET", report.ID.Hex(), nil), primitive.NewObjectID(), models.RoleStateAdmin)
	rr = httptest.NewRecorder()
	http.HandlerFunc(f.re.ReportByIDHandler).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReport_ReportByIDHandlerBadID(t *testing.T) {
	f := newReportFixture(t)

	req := asCaller(reportRequest(t, "GET", "1234", nil), f.citizen.ID, models.RoleCitizen)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.ReportByIDHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestReport_MyReportsHandler(t *testing.T) {
	f := newReportFixture(t)
	filter := bson.M{"reportedBy": f.citizen.ID}
	f.reports.On("Find", mock.Anything, filter, mock.Anything).Return([]models.Report{{ID: primitive.NewObjectID()}}, nil)
	f.reports.On("CountDocuments", mock.Anything, filter).Return(int64(11), nil)

	req, _ := http.NewRequest("GET", "/api/v1/reports/my-reports?page=2&limit=10", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.MyReportsHandler).ServeHTTP(rr, asCaller(req, f.citizen.ID, models.RoleCitizen))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":11`)
	assert.Contains(t, rr.Body.String(), `"page":2`)
}

func statusFixture(t *testing.T, assignedTo *primitive.ObjectID) (*reportFixture, models.Report) {
	f := newReportFixture(t)
	report := models.Report{
		ID: primitive.NewObjectID(), Category: "streetlight", Department: "electricity", District: "Pune",
		ReportedBy: f.citizen.ID, Description: "dark street", Location: "Lane 3", UrgencyLevel: "medium",
		Status: models.StatusInProgress, AssignedTo: assignedTo,
	}
	f.reports.On("FindOne", mock.Anything, byID(report.ID)).Return(&report, nil)
	f.reports.On("ReplaceOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	return f, report
}

func TestReport_UpdateStatusHandlerWorkerNotAssigned(t *testing.T) {
	other := primitive.NewObjectID()
	f, report := statusFixture(t, &other)

	req := asCaller(reportRequest(t, "PATCH", report.ID.Hex(), map[string]string{"status": "resolved"}), primitive.NewObjectID(), models.RoleWorker)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	f.reports.AssertNotCalled(t, "ReplaceOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestReport_UpdateStatusHandlerAssignedWorkerResolves(t *testing.T) {
	worker := primitive.NewObjectID()
	f, report := statusFixture(t, &worker)

	req := asCaller(reportRequest(t, "PATCH", report.ID.Hex(), map[string]string{"status": "Resolved"}), worker, models.RoleWorker)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateStatusHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.NotNil(t, got.ResolvedAt)
	assert.Equal(t, []pushed{{userID: f.citizen.ID.Hex(), event: handlers.EventReportStatus}}, f.hub.events)
}

func TestReport_UpdateStatusHandlerInvalidStatus(t *testing.T) {
	f, report := statusFixture(t, nil)

	req := asCaller(reportRequest(t, "PATCH", report.ID.Hex(), map[string]string{"status": "archived"}), primitive.NewObjectID(), models.RoleStateAdmin)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReport_UpdateStatusHandlerDepartmentAdminOutsideDepartment(t *testing.T) {
	f, report := statusFixture(t, nil)
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleDepartmentAdmin, Department: "sanitation", AssignedDistrict: "Pune"}
	f.users.On("FindOne", mock.Anything, byID(admin.ID)).Return(&admin, nil)

	req := asCaller(reportRequest(t, "PATCH", report.ID.Hex(), map[string]string{"status": "rejected"}), admin.ID, admin.Role)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.re.UpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}
