// internal/config/database.go
package config

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// DSN returns a key/value connection string. DATABASE_URL takes precedence
// over the discrete DB_* settings.
func (d *DatabaseConfig) DSN() (string, error) {
	if d.URL != "" {
		dsn, err := pq.ParseURL(d.URL)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return dsn, nil
	}

	pairs := []struct{ key, value string }{
		{"host", d.Host},
		{"port", d.Port},
		{"user", d.User},
		{"password", d.Password},
		{"dbname", d.Database},
		{"sslmode", d.SSLMode},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	return strings.Join(parts, " "), nil
}

// quoteDSNValue quotes a value the way pq.ParseURL does.
func quoteDSNValue(v string) string {
	v = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + v + "'"
}
