package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newObserved(debug bool) (logger.Interface, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), debug), logs
}

func sqlFn() (string, int64) { return "SELECT 1", 1 }

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("error is logged", func(t *testing.T) {
		l, logs := newObserved(false)
		l.Trace(ctx, time.Now(), sqlFn, errors.New("boom"))
		assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, logs := newObserved(false)
		l.Trace(ctx, time.Now(), sqlFn, gorm.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow query is a warning", func(t *testing.T) {
		l, logs := newObserved(false)
		l.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
		assert.Equal(t, 1, logs.FilterMessage("slow query").Len())
	})

	t.Run("normal query only in debug", func(t *testing.T) {
		l, logs := newObserved(false)
		l.Trace(ctx, time.Now(), sqlFn, nil)
		assert.Equal(t, 0, logs.Len())

		l, logs = newObserved(true)
		l.Trace(ctx, time.Now(), sqlFn, nil)
		assert.Equal(t, 1, logs.FilterMessage("query").Len())
	})

	t.Run("silent", func(t *testing.T) {
		l, logs := newObserved(true)
		l.LogMode(logger.Silent).Trace(ctx, time.Now(), sqlFn, errors.New("boom"))
		assert.Equal(t, 0, logs.Len())
	})
}
