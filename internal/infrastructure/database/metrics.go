package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/janhq/answer-api/internal/infrastructure/metrics"
)

const startedAtKey = "answer_api:started_at"

// RegisterMetrics times every create, query, update, delete and raw statement.
func RegisterMetrics(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("answer_api:before_"+h.op, startTimer); err != nil {
			return err
		}
		if err := h.after("answer_api:after_"+h.op, stopTimer(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func stopTimer(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		value, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		if startedAt, ok := value.(time.Time); ok {
			metrics.RecordDBQuery(op, time.Since(startedAt).Seconds())
		}
	}
}
