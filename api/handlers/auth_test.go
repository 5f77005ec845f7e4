package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/api/handlers"
	"github.com/civicreport/civic-report-api/api/notify"
	mocksdb "github.com/civicreport/civic-report-api/databases/mocks"
	"github.com/civicreport/civic-report-api/models"
)

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

func newAuth(t *testing.T) (handlers.Auth, *mocksdb.UserDatabase, *fakeMailer) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	users := &mocksdb.UserDatabase{}
	mailer := &fakeMailer{}
	tokens := api.TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}
	return handlers.Auth{
		UDB:      users,
		Tokens:   tokens,
		Guard:    api.NewAuthenticator(ctx, tokens),
		Notifier: &notify.Notifier{Mailer: mailer},
	}, users, mailer
}

func jsonRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func hash(t *testing.T, s string) string {
	b, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func TestAuth_RegisterThenVerifyOTP(t *testing.T) {
	a, users, mailer := newAuth(t)

	var stored models.User
	users.On("CountDocuments", mock.Anything, bson.M{"email": "ravi@example.com"}).Return(int64(0), nil)
	users.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil).Run(func(args mock.Arguments) {
		stored = args.Get(1).(models.User)
	})

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.RegisterHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"name":     "Ravi",
		"email":    " Ravi@Example.com ",
		"password": "secret123",
	}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, models.RoleCitizen, stored.Role)
	assert.Equal(t, models.VerifyByEmail, stored.VerificationMethod)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.AccountVerified)
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NotContains(t, rr.Body.String(), "password")

	sent := mailer.last()
	assert.Equal(t, "ravi@example.com", sent.To)
	code := otpPattern.FindString(sent.Text)
	require.Len(t, code, 6)
	assert.NotEqual(t, code, stored.OTP)

	users.On("FindOne", mock.Anything, bson.M{"email": "ravi@example.com"}).Return(&stored, nil)
	users.On("UpdateOne", mock.Anything, bson.M{"_id": stored.ID}, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	rr = httptest.NewRecorder()
	http.HandlerFunc(a.VerifyOTPHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/otpverify", map[string]string{
		"email": "ravi@example.com",
		"otp":   code,
	}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var session struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	assert.True(t, session.User.AccountVerified)

	claims, err := a.Tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleCitizen, claims.Role)
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	a, users, _ := newAuth(t)
	users.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(1), nil)

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.RegisterHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"name": "Ravi", "email": "ravi@example.com", "password": "secret123",
	}))

	assert.Equal(t, http.StatusConflict, rr.Code)
	users.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestAuth_RegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "secret123"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "secret123"}},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "123"}},
		{"unknown role", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123", "role": "mayor"}},
		{"sms without phone", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123", "verificationMethod": "sms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, users, _ := newAuth(t)

			rr := httptest.NewRecorder()
			http.HandlerFunc(a.RegisterHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/register", tt.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			users.AssertNotCalled(t, "CountDocuments", mock.Anything, mock.Anything)
		})
	}
}

func TestAuth_RegisterRejectsElevatedRoles(t *testing.T) {
	roles := []string{
		models.RoleWorker,
		models.RoleDepartmentAdmin,
		models.RoleDistrictAdmin,
		models.RoleStateAdmin,
		models.RoleVillageAdmin,
	}
	for _, role := range roles {
		t.Run(role, func(t *testing.T) {
			a, users, mailer := newAuth(t)

			rr := httptest.NewRecorder()
			http.HandlerFunc(a.RegisterHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/register", map[string]string{
				"name":             "Mallory",
				"email":            "mallory@example.com",
				"password":         "secret123",
				"role":             role,
				"department":       "sanitation",
				"assignedDistrict": "Pune",
			}))

			assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
			users.AssertNotCalled(t, "CountDocuments", mock.Anything, mock.Anything)
			users.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
			assert.Empty(t, mailer.last().To)
		})
	}
}

func TestAuth_RegisterExplicitCitizenRole(t *testing.T) {
	a, users, _ := newAuth(t)

	var stored models.User
	users.On("CountDocuments", mock.Anything, bson.M{"email": "asha@example.com"}).Return(int64(0), nil)
	users.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil).Run(func(args mock.Arguments) {
		stored = args.Get(1).(models.User)
	})

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.RegisterHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret123", "role": "citizen",
	}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, models.RoleCitizen, stored.Role)
	assert.Empty(t, stored.Department)
	assert.Empty(t, stored.AssignedDistrict)
}

func TestAuth_LoginTrimsEmail(t *testing.T) {
	a, users, _ := newAuth(t)
	user := &models.User{ID: primitive.NewObjectID(), Password: hash(t, "secret123"), AccountVerified: true, IsActive: true}
	users.On("FindOne", mock.Anything, bson.M{"email": "ravi@example.com"}).Return(user, nil)

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.LoginHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/login", map[string]string{
		"email": "  Ravi@Example.com\t", "password": "secret123",
	}))

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestAuth_VerifyOTPExpired(t *testing.T) {
	a, users, _ := newAuth(t)
	expired := primitive.NewDateTimeFromTime(time.Now().Add(-time.Minute))
	user := models.User{ID: primitive.NewObjectID(), Email: "ravi@example.com", OTP: hash(t, "123456"), OTPExpiresAt: &expired}
	users.On("FindOne", mock.Anything, mock.Anything).Return(&user, nil)

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.VerifyOTPHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/otpverify", map[string]string{
		"email": "ravi@example.com", "otp": "123456",
	}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	users.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_LoginHandler(t *testing.T) {
	tests := []struct {
		name     string
		user     *models.User
		findErr  error
		password string
		want     int
	}{
		{
			name:     "success",
			user:     &models.User{ID: primitive.NewObjectID(), Password: hash(t, "secret123"), Role: models.RoleWorker, AccountVerified: true, IsActive: true},
			password: "secret123",
			want:     http.StatusOK,
		},
		{
			name:     "wrong password",
			user:     &models.User{ID: primitive.NewObjectID(), Password: hash(t, "secret123"), AccountVerified: true, IsActive: true},
			password: "wrong-password",
			want:     http.StatusUnauthorized,
		},
		{
			name:     "unknown email",
			findErr:  mongo.ErrNoDocuments,
			password: "secret123",
			want:     http.StatusUnauthorized,
		},
		{
			name:     "unverified",
			user:     &models.User{ID: primitive.NewObjectID(), Password: hash(t, "secret123"), IsActive: true},
			password: "secret123",
			want:     http.StatusForbidden,
		},
		{
			name:     "inactive",
			user:     &models.User{ID: primitive.NewObjectID(), Password: hash(t, "secret123"), AccountVerified: true},
			password: "secret123",
			want:     http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, users, _ := newAuth(t)
			users.On("FindOne", mock.Anything, bson.M{"email": "ravi@example.com"}).Return(tt.user, tt.findErr)

			rr := httptest.NewRecorder()
			http.HandlerFunc(a.LoginHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/login", map[string]string{
				"email": "RAVI@example.com", "password": tt.password,
			}))

			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.want == http.StatusOK {
				assert.Contains(t, rr.Body.String(), `"token"`)
			}
		})
	}
}

func TestAuth_PasswordResetFlow(t *testing.T) {
	a, users, mailer := newAuth(t)
	user := models.User{ID: primitive.NewObjectID(), Name: "Ravi", Email: "ravi@example.com", VerificationMethod: models.VerifyByEmail}
	users.On("FindOne", mock.Anything, bson.M{"email": "ravi@example.com"}).Return(&user, nil)
	users.On("UpdateOne", mock.Anything, bson.M{"_id": user.ID}, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.ForgetPasswordHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/forget-password", map[string]string{"email": "ravi@example.com"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	code := otpPattern.FindString(mailer.last().Text)
	require.Len(t, code, 6)

	// reset is refused until the otp is verified
	rr = httptest.NewRecorder()
	http.HandlerFunc(a.ResetPasswordHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/reset-password", map[string]string{
		"email": "ravi@example.com", "password": "newsecret",
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	http.HandlerFunc(a.ForgetPasswordVerificationHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/forget-password-verification", map[string]string{
		"email": "ravi@example.com", "otp": code,
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	until := primitive.NewDateTimeFromTime(time.Now().Add(handlers.ResetWindow))
	user.PasswordResetVerified = true
	user.PasswordResetExpiresAt = &until

	rr = httptest.NewRecorder()
	http.HandlerFunc(a.ResetPasswordHandler).ServeHTTP(rr, jsonRequest(t, "POST", "/api/v1/auth/reset-password", map[string]string{
		"email": "ravi@example.com", "password": "newsecret",
	}))
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Eventually(t, func() bool {
		return mailer.last().Subject == "Your password was changed"
	}, time.Second, 10*time.Millisecond)
}
