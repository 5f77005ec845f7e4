package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/config"
)

var validate = validator.New()

// Pusher delivers realtime events to a connected user
type Pusher interface {
	Push(userID, event string, data interface{})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "unauthorized"}`))
}

// normalizer is implemented by request bodies that clean their fields before
// validation runs
type normalizer interface {
	normalize()
}

// decodeAndValidate reads a JSON body into v, normalizes it and runs its
// validate tags
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}
	return validate.Struct(v)
}

// principal returns the authenticated caller, writing a 401 when absent
func principal(w http.ResponseWriter, r *http.Request) (api.Principal, bool) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
	}
	return p, ok
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func objectID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func push(p Pusher, userID primitive.ObjectID, event string, data interface{}) {
	if p == nil || userID.IsZero() {
		return
	}
	p.Push(userID.Hex(), event, data)
}
