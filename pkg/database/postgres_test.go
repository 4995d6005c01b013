package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-engine/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "timetables", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=timetables sslmode=disable", dsn)
}

func TestURLEscapesCredentials(t *testing.T) {
	raw := URL(config.DatabaseConfig{Host: "db", Port: 5432, User: "planner", Password: "p@ss/word", Name: "timetables", SSLMode: "require"})
	assert.Equal(t, "postgres://planner:p%40ss%2Fword@db:5432/timetables?sslmode=require", raw)
}
