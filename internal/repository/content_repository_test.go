package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

func TestGetSettingsDefaultsWhenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM site_settings WHERE id = 1")).WillReturnError(sql.ErrNoRows)

	settings, err := repo.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "blue", settings.MardiChillColor)
	assert.False(t, settings.FloatingBubbleActive)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec("INSERT INTO newsletter_subscriptions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO newsletter_subscriptions").WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Subscribe(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Subscribe(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessages(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM messages ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "name", "email", "phone", "content", "event_date", "guests", "created_at"}).
			AddRow("m1", "event_quote", "Léa", "lea@example.com", "", "Anniversaire", "2024-12-01", 12, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages")).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	msgs, total, err := repo.ListMessages(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageEventQuote, msgs[0].Kind)
	assert.Equal(t, 1, total)
}
