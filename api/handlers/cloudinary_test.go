package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/civicreport/civic-report-api/api/handlers"
	"github.com/civicreport/civic-report-api/api/media"
)

type fakeSigner struct {
	err error
}

func (f fakeSigner) Sign(now time.Time) (media.Signature, error) {
	if f.err != nil {
		return media.Signature{}, f.err
	}
	return media.Signature{Timestamp: strconv.FormatInt(now.Unix(), 10), Signature: "abc123", APIKey: "key", CloudName: "demo", Folder: "civic-reports"}, nil
}

func TestCloudinaryHandler_GenerateSignature(t *testing.T) {
	c := handlers.CloudinaryHandler{Signer: fakeSigner{}}
	req, _ := http.NewRequest("GET", "/api/v1/media/signature", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.GenerateSignature).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "abc123")
}

func TestCloudinaryHandler_GenerateSignatureError(t *testing.T) {
	c := handlers.CloudinaryHandler{Signer: fakeSigner{err: errors.New("mocked-error")}}
	req, _ := http.NewRequest("GET", "/api/v1/media/signature", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.GenerateSignature).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
