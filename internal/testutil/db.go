// Package testutil holds fixtures shared by service tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/migration"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AccountID is the owner used by fixtures unless a test picks another.
const AccountID snowflake.ID = 1001

// NewDB returns a migrated in-memory sqlite database. A single connection
// keeps every statement on the same memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(conn))
	return conn
}

func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// Config returns application config pinned to Asia/Kolkata.
func Config() config.Config {
	return config.Config{
		AppName:              "hisaab",
		Environment:          "test",
		Timezone:             "Asia/Kolkata",
		DefaultInvoicePrefix: "INV",
	}
}

func Logger() *zap.Logger {
	return zap.NewNop()
}

// Clock returns a fake clock at the given wall time in IST.
func Clock(year int, month time.Month, day, hour, minute int) *clock.FakeClock {
	ist := time.FixedZone("IST", 5*60*60+30*60)
	return clock.NewFakeClock(time.Date(year, month, day, hour, minute, 0, 0, ist))
}

func Ctx() context.Context {
	return accountcontext.WithAccountID(context.Background(), AccountID)
}

func CtxFor(accountID snowflake.ID) context.Context {
	return accountcontext.WithAccountID(context.Background(), accountID)
}
