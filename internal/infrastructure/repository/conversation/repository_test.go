package conversation

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	domain "github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "conversations"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	conv := &domain.Conversation{PublicID: "conv_1"}
	require.NoError(t, repo.Create(context.Background(), conv))

	assert.Equal(t, uint(7), conv.ID)
	assert.Equal(t, "conversation", conv.Object)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByPublicID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations" WHERE public_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "public_id", "object", "title", "created_at", "updated_at"}).
			AddRow(3, "conv_1", "conversation", "Paris", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations" WHERE public_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conv, err := repo.FindByPublicID(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, uint(3), conv.ID)
	require.NotNil(t, conv.Title)
	assert.Equal(t, "Paris", *conv.Title)

	_, err = repo.FindByPublicID(context.Background(), "conv_missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SetTitleIfEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversations" SET "title"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversations" SET "title"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	set, err := repo.SetTitleIfEmpty(context.Background(), 3, "What is the capital of France?")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.SetTitleIfEmpty(context.Background(), 3, "another")
	require.NoError(t, err)
	assert.False(t, set)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteCascadesInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "conversations" WHERE public_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "conversation_messages" WHERE conversation_id = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "conversations" WHERE "conversations"."id" = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "conv_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteUnknownRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "conversations"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "conv_missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListNonEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`JOIN conversation_messages ON conversation_messages.conversation_id = conversations.id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "public_id", "object", "title", "created_at", "updated_at", "message_count"}).
			AddRow(2, "conv_b", "conversation", "B", now, now, 4).
			AddRow(1, "conv_a", "conversation", nil, now.Add(-time.Hour), now.Add(-time.Hour), 2))

	convs, err := repo.ListNonEmpty(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "conv_b", convs[0].PublicID)
	assert.Equal(t, int64(4), convs[0].MessageCount)
	assert.Nil(t, convs[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_CreateBumpsConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "conversation_messages"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversations" SET "updated_at"=$1 WHERE id = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg := &domain.Message{
		PublicID:       "msg_1",
		ConversationID: 3,
		Role:           domain.RoleAssistant,
		Content:        "Paris [1]",
		Sources:        search.Number([]search.Result{{Title: "France", URL: "https://en.wikipedia.org/wiki/France"}}),
	}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.Equal(t, uint(11), msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_ListDecodesSources(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversation_messages" WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "conversation_id", "public_id", "role", "content", "sources"}).
			AddRow(1, now, 3, "msg_1", "user", "capital of France", nil).
			AddRow(2, now, 3, "msg_2", "assistant", "Paris [1]", []byte(`[{"index":1,"title":"France","url":"https://en.wikipedia.org/wiki/France","content":"","engine":"wiki"}]`)))

	messages, err := repo.ListByConversationID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Empty(t, messages[0].Sources)
	require.Len(t, messages[1].Sources, 1)
	assert.Equal(t, 1, messages[1].Sources[0].Index)
	assert.Equal(t, "wiki", messages[1].Sources[0].Engine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_Count(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "conversation_messages" WHERE conversation_id = $1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByConversationID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
