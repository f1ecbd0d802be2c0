package message_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxd/inboxd/internal/message"
)

func setupMessageIntegrationTest(t *testing.T) (*message.Service, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return message.NewService(logger, pool), pool
}

func seedConversation(ctx context.Context, t *testing.T, pool *pgxpool.Pool) (companyID, sessionID string) {
	t.Helper()

	companyID = uuid.NewString()
	channelID := uuid.NewString()
	contactID := uuid.NewString()
	sessionID = uuid.NewString()

	_, err := pool.Exec(ctx,
		`INSERT INTO companies (id, name, timezone) VALUES ($1, 'integration-test', 'UTC')`, companyID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO channels (id, company_id, status, credential) VALUES ($1, $2, 'connected', 'cred')`,
		channelID, companyID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO contacts (id, company_id, phone_number) VALUES ($1, $2, $3)`,
		contactID, companyID, "62"+uuid.NewString()[:8])
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO conversations (id, channel_id, chat_identifier, contact_id)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, channelID, uuid.NewString()+"@s.whatsapp.net", contactID)
	require.NoError(t, err)
	return companyID, sessionID
}

func TestPersistDuplicateDelivery(t *testing.T) {
	svc, pool := setupMessageIntegrationTest(t)
	ctx := context.Background()
	companyID, sessionID := seedConversation(ctx, t, pool)

	externalID := "ext-" + uuid.NewString()
	input := message.NewInbound(companyID, sessionID, externalID, "hello", time.Now().UTC())

	first, err := svc.Persist(ctx, input)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	_, err = svc.Persist(ctx, input)
	assert.ErrorIs(t, err, message.ErrDuplicate)

	var count int
	err = pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE company_id = $1 AND external_message_id = $2`,
		companyID, externalID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPersistWithoutExternalID(t *testing.T) {
	svc, pool := setupMessageIntegrationTest(t)
	ctx := context.Background()
	companyID, sessionID := seedConversation(ctx, t, pool)

	// No external id means no dedup: both inserts land.
	input := message.NewInbound(companyID, sessionID, "", "hello", time.Now().UTC())
	_, err := svc.Persist(ctx, input)
	require.NoError(t, err)
	_, err = svc.Persist(ctx, input)
	require.NoError(t, err)

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE session_id = $1`, sessionID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListLatestChronological(t *testing.T) {
	svc, pool := setupMessageIntegrationTest(t)
	ctx := context.Background()
	companyID, sessionID := seedConversation(ctx, t, pool)

	base := time.Now().UTC().Add(-time.Hour)
	for i, body := range []string{"one", "two", "three"} {
		input := message.NewInbound(companyID, sessionID, "ext-"+uuid.NewString(), body, base.Add(time.Duration(i)*time.Minute))
		_, err := svc.Persist(ctx, input)
		require.NoError(t, err)
		// created_at drives the ordering.
		time.Sleep(10 * time.Millisecond)
	}

	messages, err := svc.ListLatest(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "two", messages[0].Body)
	assert.Equal(t, "three", messages[1].Body)
}
