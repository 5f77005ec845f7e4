package config

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string `env:"DB_URI" envDefault:"mongodb://127.0.0.1:27017"`
	DatabaseName string `env:"DB_NAME" envDefault:"civic-report"`
	BaseURL      string `env:"BASE_URL"`
	Port         string `env:"PORT" envDefault:"8080"`
	Env          string `env:"APP_ENV" envDefault:"production"`
	LogFile      string `env:"LOG_FILE"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER" envDefault:"civic-reports"`

	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"no-reply@civicreport.in"`
	MailFromName   string `env:"MAIL_FROM_NAME" envDefault:"Civic Report"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`

	CleanupSchedule      string        `env:"CLEANUP_SCHEDULE" envDefault:"@every 1h"`
	UnverifiedAccountTTL time.Duration `env:"UNVERIFIED_ACCOUNT_TTL" envDefault:"24h"`
	PointsAwardPolicy    string        `env:"POINTS_AWARD_POLICY" envDefault:"every-save"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// New sets up all config related services
func New() *Config {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	conf := &Config{}
	if err := env.Parse(conf); err != nil {
		zap.S().With(err).Error("failed to parse config from environment")
	}

	//setup zap logger and replace default logger
	logger, err := setLogger(conf.Env, conf.LogFile)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return conf
}

// IsDevelopment reports whether error details may be exposed to clients
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)

	errText := ""
	if err != nil {
		errText = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: errText}})
	w.Write(b)
}
