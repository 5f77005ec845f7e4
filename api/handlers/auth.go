package handlers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/api/notify"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
	templates "github.com/civicreport/civic-report-api/templates/html"
)

const (
	otpDigits   = 6
	otpValidFor = 10 * time.Minute

	passwordChangedSubject = "Your password was changed"
	// ResetWindow is how long a verified password reset stays open
	ResetWindow = 15 * time.Minute
)

var (
	errInvalidOTP      = errors.New("invalid or expired otp")
	errBadCredentials  = errors.New("invalid email or password")
	errResetNotAllowed = errors.New("password reset not verified or expired")

	errRoleNotSelfService = errors.New("only citizen accounts can self-register")
)

// Auth handles registration, verification, login and password resets
type Auth struct {
	UDB      databases.UserDatabase
	Tokens   api.TokenIssuer
	Guard    *api.Authenticator
	Notifier *notify.Notifier
	now      func() time.Time
}

func (a Auth) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

type registerRequest struct {
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required_if=VerificationMethod sms,required_if=VerificationMethod call"`
	Password           string `json:"password" validate:"required,min=6"`
	Role               string `json:"role" validate:"omitempty,oneof=citizen worker department-admin district-admin state-admin village-admin"`
	District           string `json:"district"`
	Village            string `json:"village" validate:"omitempty,len=24,hexadecimal"`
	VerificationMethod string `json:"verificationMethod" validate:"omitempty,oneof=email sms call"`
}

func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Role = strings.TrimSpace(r.Role)
	r.District = strings.TrimSpace(r.District)
}

type emailOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *emailOTPRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

func (r *emailRequest) normalize() { r.Email = normalizeEmail(r.Email) }

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() { r.Email = normalizeEmail(r.Email) }

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *resetPasswordRequest) normalize() { r.Email = normalizeEmail(r.Email) }

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// RegisterHandler creates an unverified account and sends it an OTP
func (a Auth) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid registration request", http.StatusBadRequest, w, err)
		return
	}
	// elevated accounts are provisioned by operators, never self-registered
	if req.Role != "" && req.Role != models.RoleCitizen {
		config.ErrorStatus("role cannot be self-registered", http.StatusForbidden, w, errRoleNotSelfService)
		return
	}
	email := req.Email

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if n, err := a.UDB.CountDocuments(ctx, bson.M{"email": email}); err != nil {
		config.ErrorStatus("failed to check email", http.StatusInternalServerError, w, err)
		return
	} else if n > 0 {
		config.ErrorStatus("email already registered", http.StatusConflict, w, nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(a.clock())
	user := models.User{
		ID:                 primitive.NewObjectID(),
		Name:               req.Name,
		Email:              email,
		Phone:              req.Phone,
		Password:           string(hash),
		Role:               models.RoleCitizen,
		District:           req.District,
		VerificationMethod: req.VerificationMethod,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if user.VerificationMethod == "" {
		user.VerificationMethod = models.VerifyByEmail
	}
	if req.Village != "" {
		v, _ := primitive.ObjectIDFromHex(req.Village)
		user.Village = &v
	}

	code, err := a.setOTP(&user)
	if err != nil {
		config.ErrorStatus("failed to generate otp", http.StatusInternalServerError, w, err)
		return
	}

	if _, err := a.UDB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	a.sendOTP(r.Context(), user, code, "verify your account")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("registration successful, an otp was sent by %s", user.VerificationMethod),
		"user":    user,
	})
}

// VerifyOTPHandler marks the account verified and returns a session token
func (a Auth) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req emailOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid otp request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("user not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	if !a.otpMatches(user, req.OTP) {
		config.ErrorStatus("otp verification failed", http.StatusBadRequest, w, errInvalidOTP)
		return
	}

	user.AccountVerified = true
	if _, err := a.UDB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"accountVerified": true, "updatedAt": primitive.NewDateTimeFromTime(a.clock())},
		"$unset": bson.M{"otp": "", "otpExpiresAt": ""},
	}); err != nil {
		config.ErrorStatus("failed to verify user", http.StatusInternalServerError, w, err)
		return
	}

	a.writeSession(w, *user)
}

// LoginHandler exchanges credentials for a session token
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid login request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("login failed", http.StatusUnauthorized, w, errBadCredentials)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("login failed", http.StatusUnauthorized, w, errBadCredentials)
		return
	}
	if !user.AccountVerified {
		config.ErrorStatus("account not verified", http.StatusForbidden, w, nil)
		return
	}
	if !user.IsActive {
		config.ErrorStatus("account is inactive", http.StatusForbidden, w, nil)
		return
	}

	a.writeSession(w, *user)
}

// ForgetPasswordHandler sends a password reset OTP
func (a Auth) ForgetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("user not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}

	code, err := a.setOTP(user)
	if err != nil {
		config.ErrorStatus("failed to generate otp", http.StatusInternalServerError, w, err)
		return
	}
	if _, err := a.UDB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"otp":                   user.OTP,
		"otpExpiresAt":          user.OTPExpiresAt,
		"passwordResetVerified": false,
		"updatedAt":             primitive.NewDateTimeFromTime(a.clock()),
	}}); err != nil {
		config.ErrorStatus("failed to store otp", http.StatusInternalServerError, w, err)
		return
	}

	a.sendOTP(r.Context(), *user, code, "reset your password")
	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset otp sent"})
}

// ForgetPasswordVerificationHandler checks the reset OTP and opens the reset window
func (a Auth) ForgetPasswordVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req emailOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid otp request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("user not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	if !a.otpMatches(user, req.OTP) {
		config.ErrorStatus("otp verification failed", http.StatusBadRequest, w, errInvalidOTP)
		return
	}

	until := primitive.NewDateTimeFromTime(a.clock().Add(ResetWindow))
	if _, err := a.UDB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{
			"passwordResetVerified":  true,
			"passwordResetExpiresAt": until,
			"updatedAt":              primitive.NewDateTimeFromTime(a.clock()),
		},
		"$unset": bson.M{"otp": "", "otpExpiresAt": ""},
	}); err != nil {
		config.ErrorStatus("failed to verify reset", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "otp verified, you may now reset your password"})
}

// ResetPasswordHandler sets a new password inside an open reset window
func (a Auth) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeAndValidate(r, &req); err != nil {
		config.ErrorStatus("invalid reset request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		if isNotFound(err) {
			config.ErrorStatus("user not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	if !user.PasswordResetVerified || user.PasswordResetExpiresAt == nil ||
		a.clock().After(user.PasswordResetExpiresAt.Time()) {
		config.ErrorStatus("password reset failed", http.StatusBadRequest, w, errResetNotAllowed)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	if _, err := a.UDB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"password": string(hash), "passwordResetVerified": false, "updatedAt": primitive.NewDateTimeFromTime(a.clock())},
		"$unset": bson.M{"passwordResetExpiresAt": ""},
	}); err != nil {
		config.ErrorStatus("failed to reset password", http.StatusInternalServerError, w, err)
		return
	}
	if a.Notifier != nil {
		a.Notifier.DeliverAndLog(context.WithoutCancel(r.Context()), notify.Email{
			ToName:  user.Name,
			To:      user.Email,
			Subject: passwordChangedSubject,
			Text:    "Your Civic Report password was just changed. If this wasn't you, reset it again right away.",
			HTML: templates.RenderGenericEmail(passwordChangedSubject,
				"Hi "+user.Name+",\n\nYour Civic Report password was just changed.\nIf this wasn't you, reset it again right away."),
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset successful"})
}

// LogoutHandler revokes the caller's token
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.Guard.RevokeToken(r); err != nil {
		config.ErrorStatus("failed to logout", http.StatusBadRequest, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (a Auth) writeSession(w http.ResponseWriter, user models.User) {
	token, err := a.Tokens.Issue(user)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// setOTP stores a bcrypt hash of a fresh code on the user and returns the code
func (a Auth) setOTP(user *models.User) (string, error) {
	code, err := generateOTP()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	expires := primitive.NewDateTimeFromTime(a.clock().Add(otpValidFor))
	user.OTP = string(hash)
	user.OTPExpiresAt = &expires
	return code, nil
}

func (a Auth) otpMatches(user *models.User, code string) bool {
	if user.OTP == "" || user.OTPExpiresAt == nil || a.clock().After(user.OTPExpiresAt.Time()) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.OTP), []byte(code)) == nil
}

// sendOTP delivers the code. Delivery failures are logged; the caller can
// request a new code.
func (a Auth) sendOTP(ctx context.Context, user models.User, code, purpose string) {
	if a.Notifier == nil {
		zap.S().Warnw("no notifier configured, otp not sent", "userId", user.ID.Hex())
		return
	}
	err := a.Notifier.SendOTP(ctx, notify.OTP{
		Channel: user.VerificationMethod,
		Name:    user.Name,
		Email:   user.Email,
		Phone:   user.Phone,
		Code:    code,
		Subject: "Your Civic Report verification code",
		HTML:    templates.RenderOTPEmail(user.Name, code, purpose, int(otpValidFor/time.Minute)),
	})
	if err != nil {
		zap.S().Errorw("failed to send otp", "userId", user.ID.Hex(), "channel", user.VerificationMethod, "error", err)
	}
}

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
