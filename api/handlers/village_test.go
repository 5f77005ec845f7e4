package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/api/handlers"
	mocksdb "github.com/civicreport/civic-report-api/databases/mocks"
	"github.com/civicreport/civic-report-api/models"
)

type villageFixture struct {
	villages *mocksdb.VillageDatabase
	users    *mocksdb.UserDatabase
	points   *mocksdb.PointDatabase
	v        handlers.Village
	village  models.Village
}

func newVillageFixture() *villageFixture {
	f := &villageFixture{
		villages: &mocksdb.VillageDatabase{},
		users:    &mocksdb.UserDatabase{},
		points:   &mocksdb.PointDatabase{},
		village:  models.Village{ID: primitive.NewObjectID(), Name: "Khed", District: "Pune", Population: 4200},
	}
	f.v = handlers.Village{VDB: f.villages, UDB: f.users, PDB: f.points}
	return f
}

func villageRequest(t *testing.T, method, id string, body interface{}) *http.Request {
	var req *http.Request
	if body != nil {
		req = jsonRequest(t, method, "/api/v1/villages/"+id, body)
	} else {
		req, _ = http.NewRequest(method, "/api/v1/villages/"+id, nil)
	}
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestVillage_VillageSummaryHandler(t *testing.T) {
	f := newVillageFixture()
	f.villages.On("FindOne", mock.Anything, bson.M{"_id": f.village.ID}).Return(&f.village, nil)
	f.users.On("CountDocuments", mock.Anything, bson.M{"village": f.village.ID, "role": models.RoleCitizen}).Return(int64(120), nil)
	f.users.On("CountDocuments", mock.Anything, bson.M{"village": f.village.ID, "role": models.RoleWorker}).Return(int64(6), nil)
	f.points.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(2).(*[]struct {
			Points int `bson:"points"`
		})
		*out = append(*out, struct {
			Points int `bson:"points"`
		}{Points: 840})
	})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.VillageSummaryHandler).ServeHTTP(rr, villageRequest(t, "GET", f.village.ID.Hex(), nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.VillageSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Khed", got.Village.Name)
	assert.Equal(t, int64(120), got.Citizens)
	assert.Equal(t, int64(6), got.Workers)
	assert.Equal(t, 840, got.TotalPoints)
}

func TestVillage_VillageSummaryHandlerNotFound(t *testing.T) {
	f := newVillageFixture()
	f.villages.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.VillageSummaryHandler).ServeHTTP(rr, villageRequest(t, "GET", primitive.NewObjectID().Hex(), nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVillage_UpdateVillageDetailsHandlerOtherVillage(t *testing.T) {
	f := newVillageFixture()
	own := primitive.NewObjectID()
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleVillageAdmin, Village: &own}
	f.users.On("FindOne", mock.Anything, byID(admin.ID)).Return(&admin, nil)

	req := villageRequest(t, "POST", f.village.ID.Hex(), map[string]interface{}{"population": 5000})
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.UpdateVillageDetailsHandler).ServeHTTP(rr, asCaller(req, admin.ID, admin.Role))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	f.villages.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestVillage_UpdateVillageDetailsHandler(t *testing.T) {
	f := newVillageFixture()
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleVillageAdmin, Village: &f.village.ID}
	updated := f.village
	updated.Population = 5000
	updated.Facilities = []string{"school", "clinic"}

	f.users.On("FindOne", mock.Anything, byID(admin.ID)).Return(&admin, nil)
	f.villages.On("UpdateOne", mock.Anything, bson.M{"_id": f.village.ID}, mock.MatchedBy(func(u bson.M) bool {
		set := u["$set"].(bson.M)
		_, hasName := set["name"]
		return set["population"] == 5000 && !hasName
	})).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	f.villages.On("FindOne", mock.Anything, bson.M{"_id": f.village.ID}).Return(&updated, nil)

	req := villageRequest(t, "POST", f.village.ID.Hex(), map[string]interface{}{
		"population": 5000,
		"facilities": []string{"school", "clinic"},
	})
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.UpdateVillageDetailsHandler).ServeHTTP(rr, asCaller(req, admin.ID, admin.Role))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"population":5000`)
	f.villages.AssertExpectations(t)
}

func TestVillage_UpdateVillageDetailsHandlerMissingVillage(t *testing.T) {
	f := newVillageFixture()
	f.villages.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)

	req := villageRequest(t, "POST", f.village.ID.Hex(), map[string]interface{}{"headName": "Sarpanch"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.UpdateVillageDetailsHandler).ServeHTTP(rr, asCaller(req, primitive.NewObjectID(), models.RoleStateAdmin))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVillage_CreateVillageHandler(t *testing.T) {
	f := newVillageFixture()
	f.villages.On("InsertOne", mock.Anything, mock.MatchedBy(func(v models.Village) bool {
		return v.Name == "Ambegaon" && !v.ID.IsZero()
	})).Return(primitive.NewObjectID(), nil)

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.CreateVillageHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/villages", map[string]interface{}{
		"name": "Ambegaon", "district": "Pune", "population": 900,
	}))
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	http.HandlerFunc(f.v.CreateVillageHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/villages", map[string]interface{}{
		"name": "Ambegaon",
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVillage_VillageWorkersHandler(t *testing.T) {
	f := newVillageFixture()
	f.users.On("Find", mock.Anything, bson.M{"village": f.village.ID, "role": models.RoleWorker, "isActive": true}).
		Return([]models.User{{ID: primitive.NewObjectID(), Name: "Sunil", Role: models.RoleWorker}}, nil)

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.v.VillageWorkersHandler).ServeHTTP(rr, villageRequest(t, "GET", f.village.ID.Hex(), nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Sunil")
}
