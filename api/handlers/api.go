package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/api"
	"github.com/civicreport/civic-report-api/api/intake"
	"github.com/civicreport/civic-report-api/api/media"
	"github.com/civicreport/civic-report-api/api/notify"
	"github.com/civicreport/civic-report-api/api/scheduler"
	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

const defaultRequestTimeout = 30 * time.Second

// App stores the router and every process-lifetime resource, so they can be
// reused and shut down together
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	Hub       *NotificationHub
	Metrics   *api.MetricsCollector
	Notifier  *notify.Notifier

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	media    *media.Cloudinary
	guard    *api.Authenticator
	cancel   context.CancelFunc
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	udb := databases.NewUserDatabase(a.dbHelper)
	rdb := databases.NewReportDatabase(a.dbHelper)
	pdb := databases.NewPointDatabase(a.dbHelper)

	lifecycle := intake.Lifecycle{
		Reports: rdb,
		Users:   udb,
		Points:  pdb,
		Policy:  intake.ParsePointsPolicy(a.Config.PointsAwardPolicy),
	}

	var uploader media.Uploader
	var signer Signer
	if a.media != nil {
		uploader = a.media
		signer = a.media
	}

	au := Auth{UDB: udb, Tokens: a.guard.Tokens, Guard: a.guard, Notifier: a.Notifier}
	re := Report{RDB: rdb, UDB: udb, Lifecycle: lifecycle, Media: uploader, Notifier: a.Notifier, Hub: a.Hub}
	d := Department{RDB: rdb, UDB: udb, Lifecycle: lifecycle, Notifier: a.Notifier, Hub: a.Hub}
	dash := Dashboard{RDB: rdb, UDB: udb, PDB: pdb}
	v := Village{VDB: databases.NewVillageDatabase(a.dbHelper), UDB: udb, PDB: pdb}
	lb := Leaderboard{PDB: pdb}
	ev := Event{EDB: databases.NewEventDatabase(a.dbHelper)}
	fb := Feedback{FDB: databases.NewFeedbackDatabase(a.dbHelper)}
	cloudinaryHandler := CloudinaryHandler{Signer: signer}
	metricsHandler := MetricsHandler{Collector: a.Metrics}

	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := mux.NewRouter()
	r.Use(api.Recovery(a.Config.IsDevelopment()))
	r.Use(api.MetricsMiddleware(a.Metrics))
	r.Use(api.TimeoutMiddleware(timeout))

	// healthchex
	r.HandleFunc("/health", a.healthCheckHandler).Methods("GET")

	authed := func(h http.HandlerFunc) http.Handler {
		return a.guard.Middleware(h)
	}
	protect := func(obj, act string, h http.HandlerFunc) http.Handler {
		return a.guard.Middleware(api.RequirePermission(obj, act)(h))
	}

	apiV1 := r.PathPrefix("/api/v1").Subrouter()

	apiV1.Handle("/auth/register", http.HandlerFunc(au.RegisterHandler)).Methods("POST")
	apiV1.Handle("/auth/otpverify", http.HandlerFunc(au.VerifyOTPHandler)).Methods("POST")
	apiV1.Handle("/auth/login", http.HandlerFunc(au.LoginHandler)).Methods("POST")
	apiV1.Handle("/auth/forget-password", http.HandlerFunc(au.ForgetPasswordHandler)).Methods("POST")
	apiV1.Handle("/auth/forget-password-verification", http.HandlerFunc(au.ForgetPasswordVerificationHandler)).Methods("POST")
	apiV1.Handle("/auth/reset-password", http.HandlerFunc(au.ResetPasswordHandler)).Methods("POST")
	apiV1.Handle("/auth/logout", authed(au.LogoutHandler)).Methods("POST")

	apiV1.Handle("/reports/create", protect(api.ObjReport, api.ActCreate, re.CreateReportHandler)).Methods("POST")
	apiV1.Handle("/reports/my-reports", protect(api.ObjReport, api.ActRead, re.MyReportsHandler)).Methods("GET")
	apiV1.Handle("/reports/{id}/status", protect(api.ObjReport, api.ActUpdateStatus, re.UpdateStatusHandler)).Methods("PATCH")
	apiV1.Handle("/reports/{id}", protect(api.ObjReport, api.ActRead, re.ReportByIDHandler)).Methods("GET")
	apiV1.Handle("/reports/{id}", authed(re.UpdateReportHandler)).Methods("PUT")
	apiV1.Handle("/reports/{id}", authed(re.DeleteReportHandler)).Methods("DELETE")

	apiV1.Handle("/department/reports", protect(api.ObjReport, api.ActReadAll, d.DepartmentReportsHandler)).Methods("GET")
	apiV1.Handle("/department/workers", protect(api.ObjReport, api.ActAssign, d.WorkersHandler)).Methods("GET")
	apiV1.Handle("/department/reports/{reportId}/assign", authed(d.AssignReportHandler)).Methods("POST")

	apiV1.Handle("/dashboard/citizen", protect(api.ObjDashboard, api.ActCitizen, dash.CitizenDashboardHandler)).Methods("GET")
	apiV1.Handle("/dashboard/worker", protect(api.ObjDashboard, api.ActWorker, dash.WorkerDashboardHandler)).Methods("GET")
	apiV1.Handle("/dashboard/department", protect(api.ObjDashboard, api.ActDepartment, dash.DepartmentDashboardHandler)).Methods("GET")
	apiV1.Handle("/dashboard/district", protect(api.ObjDashboard, api.ActDistrict, dash.DistrictDashboardHandler)).Methods("GET")
	apiV1.Handle("/dashboard/state", protect(api.ObjDashboard, api.ActState, dash.StateDashboardHandler)).Methods("GET")

	apiV1.Handle("/villages", protect(api.ObjVillage, api.ActCreate, v.CreateVillageHandler)).Methods("POST")
	apiV1.Handle("/villages/{id}/summary", protect(api.ObjVillage, api.ActRead, v.VillageSummaryHandler)).Methods("GET")
	apiV1.Handle("/villages/{id}/workers", protect(api.ObjVillage, api.ActRead, v.VillageWorkersHandler)).Methods("GET")
	apiV1.Handle("/villages/{id}/details", protect(api.ObjVillage, api.ActUpdate, v.UpdateVillageDetailsHandler)).Methods("POST")

	apiV1.Handle("/leaderboards/citizens", protect(api.ObjLeaderboard, api.ActRead, lb.CitizensLeaderboardHandler)).Methods("GET")
	apiV1.Handle("/leaderboards/villages", protect(api.ObjLeaderboard, api.ActRead, lb.VillagesLeaderboardHandler)).Methods("GET")

	apiV1.Handle("/events", protect(api.ObjEvent, api.ActCreate, ev.CreateEventHandler)).Methods("POST")
	apiV1.Handle("/events", protect(api.ObjEvent, api.ActRead, ev.EventsHandler)).Methods("GET")

	apiV1.Handle("/feedback", protect(api.ObjFeedback, api.ActCreate, fb.CreateFeedbackHandler)).Methods("POST")
	apiV1.Handle("/feedback", protect(api.ObjFeedback, api.ActReadAll, fb.FeedbackHandler)).Methods("GET")

	apiV1.Handle("/metrics", protect(api.ObjDashboard, api.ActState, metricsHandler.GetMetricsDashboard)).Methods("GET")
	apiV1.Handle("/media/signature", authed(cloudinaryHandler.GenerateSignature)).Methods("GET")
	apiV1.Handle("/ws/notifications", authed(a.Hub.HandleNotificationsWebSocket)).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	if a.Config.JWTSecret == "" {
		return api.ErrMissingSecret
	}

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	zap.S().Info("civic-report-api has connected to the database")

	a.initializeServices()

	a.Scheduler = scheduler.NewScheduler(databases.NewUserDatabase(a.dbHelper), a.Config.CleanupSchedule, a.Config.UnverifiedAccountTTL)
	if err := a.Scheduler.Start(); err != nil {
		return err
	}

	a.initializeRoutes()
	return nil
}

// initializeServices builds the long-lived collaborators shared by every handler
func (a *App) initializeServices() {
	var bg context.Context
	bg, a.cancel = context.WithCancel(context.Background())

	a.guard = api.NewAuthenticator(bg, api.TokenIssuer{Secret: []byte(a.Config.JWTSecret), TTL: a.Config.JWTTTL})
	a.Hub = NewNotificationHub()
	a.Metrics = api.NewMetricsCollector(1000)
	a.Notifier = newNotifier(a.Config)

	cld, err := media.NewCloudinary(a.Config.CloudinaryCloudName, a.Config.CloudinaryAPIKey, a.Config.CloudinaryAPISecret, a.Config.CloudinaryFolder)
	switch {
	case errors.Is(err, media.ErrNotConfigured):
		zap.S().Warn("cloudinary credentials missing, report uploads are disabled")
	case err != nil:
		zap.S().Errorw("failed to set up cloudinary", "error", err)
	default:
		a.media = cld
	}
}

func newNotifier(conf config.Config) *notify.Notifier {
	from := notify.Sender{Name: conf.MailFromName, Address: conf.MailFrom}

	var mailers notify.FallbackMailer
	if conf.SendgridAPIKey != "" {
		mailers = append(mailers, notify.NewSendGridMailer(conf.SendgridAPIKey, from))
	}
	if conf.SMTPHost != "" {
		mailers = append(mailers, notify.NewSMTPMailer(conf.SMTPHost, conf.SMTPPort, conf.SMTPUser, conf.SMTPPassword, from))
	}
	n := &notify.Notifier{}
	if len(mailers) > 0 {
		n.Mailer = mailers
	} else {
		zap.S().Warn("no mail transport configured, emails will not be sent")
	}
	if conf.TwilioAccountSID != "" && conf.TwilioAuthToken != "" {
		n.Phone = notify.NewTwilioSender(conf.TwilioAccountSID, conf.TwilioAuthToken, conf.TwilioFromNumber)
	} else {
		zap.S().Warn("twilio credentials missing, sms and call verification are disabled")
	}
	return n
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Close stops background work and disconnects from the database
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Metrics != nil {
		a.Metrics.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Errorw("failed to disconnect from database", "error", err)
		}
	}
}

type healthResponse struct {
	models.HealthCheckResponse
	Metrics *api.MetricsSummary `json:"metrics,omitempty"`
}

func (a *App) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{HealthCheckResponse: models.HealthCheckResponse{Alive: true}}
	if a.Metrics != nil {
		s := a.Metrics.Summary()
		resp.Metrics = &s
	}
	writeJSON(w, http.StatusOK, resp)
}
