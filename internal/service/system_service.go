package service

import (
	"database/sql"

	"goldwarehouse/internal/database"
)

// AppVersion is the released application version.
const AppVersion = "1.0.0"

// SystemService exposes process health and version information.
type SystemService struct {
	db *sql.DB
}

func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// Health reports whether the database is reachable.
func (s *SystemService) Health() error {
	return database.HealthCheck(s.db)
}

// Version returns the application version and the applied schema version.
func (s *SystemService) Version() (string, int64, error) {
	schema, err := database.Version(s.db)
	if err != nil {
		return AppVersion, 0, err
	}
	return AppVersion, schema, nil
}
