package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"showza:s3cret@tcp(db.internal:3306)/showza?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn("showza", "s3cret", "db.internal", "3306", "showza"))

	// No password means no colon in the auth segment.
	assert.Equal(t,
		"root@tcp(localhost:3306)/showza_test?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn("root", "", "localhost", "3306", "showza_test"))
}

func TestPoolDefaults(t *testing.T) {
	p := Pool{}.withDefaults()
	assert.Equal(t, 25, p.MaxOpen)
	assert.Equal(t, 25, p.MaxIdle)
	assert.Equal(t, 30*time.Minute, p.ConnMaxLifetime)

	// Idle follows a custom open bound unless set explicitly.
	p = Pool{MaxOpen: 10}.withDefaults()
	assert.Equal(t, 10, p.MaxIdle)

	p = Pool{MaxOpen: 10, MaxIdle: 4, ConnMaxLifetime: time.Hour}.withDefaults()
	assert.Equal(t, 4, p.MaxIdle)
	assert.Equal(t, time.Hour, p.ConnMaxLifetime)
}
