package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"marketplace/config"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newCapturingGormLogger(debug bool) (*gormSlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := &config.Config{}
	cfg.Env.Debug = debug

	return newGormSlogLogger(base, cfg).(*gormSlogLogger), &buf
}

func TestGormSlogLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "INSERT INTO accounts ...", 0 }

	tests := []struct {
		name    string
		err     error
		want    string
		wantNot string
	}{
		{name: "unique conflict is not an error", err: gorm.ErrDuplicatedKey, wantNot: "GORM query failed"},
		{name: "postgres unique violation text", err: errors.New(`ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)`), wantNot: "GORM query failed"},
		{name: "record not found is ignored", err: gorm.ErrRecordNotFound, wantNot: "GORM query failed"},
		{name: "other failures are logged", err: errors.New("connection reset by peer"), want: "GORM query failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newCapturingGormLogger(false)
			l.Trace(context.Background(), time.Now(), query, tt.err)

			if tt.want != "" {
				assert.Contains(t, buf.String(), tt.want)
			}
			if tt.wantNot != "" {
				assert.NotContains(t, buf.String(), tt.wantNot)
			}
		})
	}
}

func TestGormSlogLogger_ParamsFilter(t *testing.T) {
	quiet, _ := newCapturingGormLogger(false)
	sql, params := quiet.ParamsFilter(context.Background(), "SELECT ? ", "$2a$12$hash")
	assert.Equal(t, "SELECT ? ", sql)
	assert.Nil(t, params)

	verbose, _ := newCapturingGormLogger(true)
	_, params = verbose.ParamsFilter(context.Background(), "SELECT ? ", "value")
	assert.Equal(t, []any{"value"}, params)
}
