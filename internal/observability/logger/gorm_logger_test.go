package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "INSERT", operationFromSQL("INSERT INTO price_snapshots VALUES (1)"))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 10 * time.Millisecond,
	})

	fc := func() (string, int64) { return "UPDATE price_snapshots SET price = 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, nil)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	assert.Equal(t, 1, logs.FilterMessage("gorm.query").FilterField(zap.String("operation", "UPDATE")).Len())

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestGormLoggerIgnoresRecordNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())
}
