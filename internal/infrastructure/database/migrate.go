package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/janhq/answer-api/internal/infrastructure/database/entities"
)

// schemaModels lists tables in dependency order: messages reference conversations.
var schemaModels = []any{
	&entities.Conversation{},
	&entities.Message{},
}

// AutoMigrate creates or updates the conversation tables.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	migrator := db.WithContext(ctx).Migrator()
	for _, model := range schemaModels {
		if err := migrator.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	log.Info().Int("tables", len(schemaModels)).Msg("database schema up to date")
	return nil
}
