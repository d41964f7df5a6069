package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/services/repositories"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string

	requests *repositories.FoiaRepository
	profiles *repositories.ProfileRepository
}

const POSTGRES_SVC = "postgres_svc"

// StatusChannel is the NOTIFY channel fed by the foia_requests status trigger.
const StatusChannel = "foia_status_changed"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

// DSN is the connection string, shared with the LISTEN connection.
func (ds PostgresService) DSN() string {
	return ds.database
}

func (ds *PostgresService) Requests() *repositories.FoiaRepository {
	return ds.requests
}

func (ds *PostgresService) Profiles() *repositories.ProfileRepository {
	return ds.profiles
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = DatabaseURL()
	return ds.DefaultService.Configure(ctx)
}

// NewPostgresService builds the service outside the container, for the CLI
// tools. Call Start before use.
func NewPostgresService(dsn string) *PostgresService {
	return &PostgresService{database: dsn}
}

// DatabaseURL reads DATABASE_URL, or assembles a DSN from the DB_* variables.
func DatabaseURL() string {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "ezfoia"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		timezone := os.Getenv("DB_TIMEZONE")
		if timezone == "" {
			timezone = "UTC"
		}

		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	return dsn
}

func (ds *PostgresService) Start() (err error) {
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.WithField("attempt", attempt).Info("Connecting to database")

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Error),
			TranslateError: true,
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.WithError(err).Errorf("Failed to connect to database after %d attempts", maxRetries)
			return err
		}

		log.WithError(err).Warnf("Database connection failed, retrying in %v", retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	if err := ds.Migrate(); err != nil {
		return err
	}

	ds.requests = repositories.NewFoiaRepository(ds.db)
	ds.profiles = repositories.NewProfileRepository(ds.db)

	log.Info("Database connected and migrated successfully")
	return nil
}

func (ds *PostgresService) Migrate() error {
	models := []interface{}{
		&model.FoiaRequest{},
		&model.FoiaDocument{},
		&model.Profile{},
		&model.ActivityLog{},
		&model.UserRole{},
	}

	if err := ds.db.AutoMigrate(models...); err != nil {
		log.WithError(err).Error("Failed to migrate database")
		return err
	}

	if err := ds.installStatusTrigger(); err != nil {
		log.WithError(err).Error("Failed to install status trigger")
		return err
	}
	return nil
}

// installStatusTrigger makes every status change, from any writer, NOTIFY StatusChannel.
func (ds *PostgresService) installStatusTrigger() error {
	statements := []string{
		`CREATE OR REPLACE FUNCTION notify_foia_status_changed() RETURNS trigger AS $$
BEGIN
	IF NEW.status IS DISTINCT FROM OLD.status THEN
		PERFORM pg_notify('` + StatusChannel + `', json_build_object(
			'request_id', NEW.id,
			'new_status', NEW.status,
			'old_status', OLD.status
		)::text);
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS foia_status_changed ON foia_requests`,
		`CREATE TRIGGER foia_status_changed AFTER UPDATE OF status ON foia_requests
	FOR EACH ROW EXECUTE FUNCTION notify_foia_status_changed()`,
	}

	for _, stmt := range statements {
		if err := ds.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (ds *PostgresService) Shutdown() {
	if ds.db == nil {
		return
	}
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	return handleDBError(err)
}

// handleDBError classifies a gorm error into an AppError carrying the HTTP status.
func handleDBError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "relation") && strings.Contains(err.Error(), "does not exist") {
			statusCode = http.StatusInternalServerError
			errorType = "SCHEMA_ERROR"
		} else if strings.Contains(err.Error(), "connection refused") {
			statusCode = http.StatusServiceUnavailable
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return dbAppError(statusCode, errorType, err)
}

func dbAppError(statusCode int, errorType string, err error) error {
	wrapped := fmt.Errorf("%s: %w", errorType, err)
	switch statusCode {
	case http.StatusNotFound:
		return shared.NewNotFoundError(wrapped, "Resource not found")
	case http.StatusConflict:
		return shared.NewAppError(statusCode, wrapped, "Resource already exists")
	case http.StatusBadRequest:
		return shared.NewBadRequestError(wrapped, "Invalid reference")
	default:
		return shared.NewInternalError(wrapped, "Internal Server Error")
	}
}
