package handlers_test

import (
	"context"
	"net/http"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/api/media"
	"github.com/civicreport/civic-report-api/api/notify"
)

func asCaller(req *http.Request, id primitive.ObjectID, role string) *http.Request {
	return req.WithContext(api.WithPrincipal(req.Context(), api.Principal{UserID: id, Role: role}))
}

type fakeUploader struct {
	mu        sync.Mutex
	uploaded  []string
	destroyed []string
	failOn    string
}

func (f *fakeUploader) Upload(ctx context.Context, path, resourceType string) (media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if resourceType == f.failOn {
		return media.Asset{}, errUploadFailed
	}
	f.uploaded = append(f.uploaded, resourceType)
	return media.Asset{
		URL:      "https://res.cloudinary.com/demo/" + resourceType + "/upload/report.bin",
		PublicID: "civic-reports/" + resourceType,
	}, nil
}

func (f *fakeUploader) Destroy(ctx context.Context, publicID, resourceType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if publicID != "" {
		f.destroyed = append(f.destroyed, publicID)
	}
	return nil
}

type pushed struct {
	userID string
	event  string
}

type fakePusher struct {
	mu     sync.Mutex
	events []pushed
}

func (f *fakePusher) Push(userID, event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, pushed{userID: userID, event: event})
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Email
}

func (f *fakeMailer) Send(ctx context.Context, e notify.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeMailer) last() notify.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return notify.Email{}
	}
	return f.sent[len(f.sent)-1]
}
