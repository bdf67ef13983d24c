// Package db provides the optional Postgres-backed tool usage log.
// The server runs fine without it; everything here is gated on DATABASE_URL.
package db

import (
	"log"

	"github.com/go-faster/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and ensures the usage table exists.
func Open(dsn string) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := database.AutoMigrate(&ToolInvocation{}); err != nil {
		return nil, errors.Wrap(err, "migrate tool_invocations")
	}
	return database, nil
}

// UsageRecorder writes tool invocations to the database without blocking the
// request path. Insert failures are logged and dropped.
type UsageRecorder struct {
	db *gorm.DB
}

func NewUsageRecorder(database *gorm.DB) *UsageRecorder {
	return &UsageRecorder{db: database}
}

// Record inserts a usage row. Fire-and-forget style.
func (r *UsageRecorder) Record(requestID, tool, status string) {
	entry := ToolInvocation{Tool: tool, Status: status}
	if requestID != "" {
		entry.RequestID = &requestID
	}
	go func() {
		if err := r.db.Create(&entry).Error; err != nil {
			log.Printf("usage log insert failed: %v", err)
		}
	}()
}
