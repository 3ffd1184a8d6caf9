package database

import (
	"fmt"
	"net/url"

	"github.com/hsebcm/calendar-sync/internal/config"
)

// ApplicationName tags cache connections in pg_stat_activity.
const ApplicationName = "hsebcm-cache"

// BuildConnString builds a PostgreSQL connection URL for the cache database.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
