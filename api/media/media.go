// Package media stores report photos and voice notes in Cloudinary.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	cldapi "github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resource types accepted by the uploader
const (
	ResourceImage = "image"
	// Cloudinary stores audio under the video resource type
	ResourceVoice = "video"
)

// ErrNotConfigured is returned when Cloudinary credentials are missing
var ErrNotConfigured = errors.New("cloudinary is not configured")

// Asset is a stored media file
type Asset struct {
	URL      string
	PublicID string
}

// Uploader stores and removes media files
type Uploader interface {
	Upload(ctx context.Context, path, resourceType string) (Asset, error)
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// Cloudinary is the Uploader backed by the Cloudinary upload API
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	secret string
	apiKey string
	cloud  string
}

// NewCloudinary builds the uploader from account credentials
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder, secret: apiSecret, apiKey: apiKey, cloud: cloudName}, nil
}

// Upload sends the file at path to Cloudinary
func (c *Cloudinary) Upload(ctx context.Context, path, resourceType string) (Asset, error) {
	resp, err := c.cld.Upload.Upload(ctx, path, uploader.UploadParams{
		Folder:       c.folder,
		ResourceType: resourceType,
	})
	if err != nil {
		return Asset{}, fmt.Errorf("failed to upload %s: %w", resourceType, err)
	}
	if resp.Error.Message != "" {
		return Asset{}, fmt.Errorf("failed to upload %s: %s", resourceType, resp.Error.Message)
	}
	return Asset{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// Destroy removes a stored file
func (c *Cloudinary) Destroy(ctx context.Context, publicID, resourceType string) error {
	if publicID == "" {
		return nil
	}
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("failed to destroy %s: %s", publicID, resp.Error.Message)
	}
	return nil
}

// Signature is what a browser needs to upload directly to Cloudinary
type Signature struct {
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"apiKey"`
	CloudName string `json:"cloudName"`
	Folder    string `json:"folder"`
}

// Sign returns a signed set of upload parameters valid for the configured folder
func (c *Cloudinary) Sign(now time.Time) (Signature, error) {
	ts := strconv.FormatInt(now.Unix(), 10)
	params := url.Values{}
	params.Set("timestamp", ts)
	if c.folder != "" {
		params.Set("folder", c.folder)
	}
	sig, err := cldapi.SignParameters(params, c.secret)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign upload parameters: %w", err)
	}
	return Signature{Timestamp: ts, Signature: sig, APIKey: c.apiKey, CloudName: c.cloud, Folder: c.folder}, nil
}

// Spool holds multipart parts written to local temp files for the
// duration of one request
type Spool struct {
	dir   string
	paths []string
}

// NewSpool returns a spool writing into dir, or the OS temp dir when empty
func NewSpool(dir string) *Spool {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Spool{dir: dir}
}

// Save copies a multipart part to a uniquely named temp file and returns its path
func (s *Spool) Save(part multipart.File, header *multipart.FileHeader) (string, error) {
	name := uuid.New().String() + filepath.Ext(header.Filename)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	s.paths = append(s.paths, path)
	defer f.Close()

	if _, err := io.Copy(f, part); err != nil {
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}
	return path, nil
}

// Paths lists every file written so far
func (s *Spool) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Cleanup removes every spooled file
func (s *Spool) Cleanup() {
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			zap.S().Warnw("failed to remove temp file", "path", p, "error", err)
		}
	}
	s.paths = nil
}
