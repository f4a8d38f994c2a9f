package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/calendar-manager/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "cal", Password: "secret", Name: "calendars", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=cal password=secret dbname=calendars sslmode=require", dsn)
}
