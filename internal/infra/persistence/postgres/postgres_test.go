package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"github.com/stretchr/testify/assert"
)

func TestWithIdentityDefaults(t *testing.T) {
	conn := &pgLib.DBConn{Database: "identity"}

	tuned := withIdentityDefaults(conn, "marketplace-identity")
	assert.Equal(t, "marketplace-identity", tuned.ApplicationName)
	assert.Equal(t, defaultStmtTimeout, tuned.StatementTimeout)
	assert.Equal(t, defaultLockTimeout, tuned.LockTimeout)
	assert.Equal(t, defaultIdleTxTimeout, tuned.IdleInTransactionSessionTimeout)
	assert.Equal(t, "identity", tuned.Database)
	assert.Empty(t, conn.ApplicationName, "input is not mutated")

	explicit := &pgLib.DBConn{ApplicationName: "ops", LockTimeout: time.Second}
	tuned = withIdentityDefaults(explicit, "")
	assert.Equal(t, "ops", tuned.ApplicationName)
	assert.Equal(t, time.Second, tuned.LockTimeout)

	assert.Equal(t, defaultAppName, withIdentityDefaults(&pgLib.DBConn{}, "").ApplicationName)
}

func TestPoolMonitor_Observe(t *testing.T) {
	var buf bytes.Buffer
	monitor := &poolMonitor{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	ctx := context.Background()

	monitor.observe(ctx, sql.DBStats{})
	assert.Empty(t, buf.String())

	monitor.observe(ctx, sql.DBStats{WaitCount: 2, WaitDuration: 10 * time.Millisecond})
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "waits=2")

	buf.Reset()
	monitor.observe(ctx, sql.DBStats{WaitCount: 3, WaitDuration: 90 * time.Millisecond})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "waits=1")
}
