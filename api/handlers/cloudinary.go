package handlers

import (
	"net/http"
	"time"

	"github.com/civicreport/civic-report-api/api/media"
	"github.com/civicreport/civic-report-api/config"
)

// Signer signs direct browser uploads
type Signer interface {
	Sign(now time.Time) (media.Signature, error)
}

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct {
	Signer Signer
}

// GenerateSignature returns signed parameters for an upload straight to Cloudinary
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	if c.Signer == nil {
		config.ErrorStatus("media storage is not configured", http.StatusInternalServerError, w, media.ErrNotConfigured)
		return
	}
	sig, err := c.Signer.Sign(time.Now())
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}
