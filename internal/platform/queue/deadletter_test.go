package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notificationsModel "github.com/andreypavlenko/jobber/modules/notifications/model"
)

// testSink mirrors PostgresDeadLetterSink's queries against a pgxmock pool,
// the way the repository packages' own pgxmock tests do, since Park/List
// are unexported-pool-free enough to exercise directly here.
type testSink struct {
	mock     pgxmock.PgxPoolIface
	notifier OpsNotifier
}

func (s *testSink) park(ctx context.Context, job Job, lastErr error) error {
	_, err := s.mock.Exec(ctx, `
		INSERT INTO dead_letter_jobs (topic, idempotency_key, payload, attempt, error, parked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, job.Topic, job.IdempotencyKey, job.Payload, job.Attempt, lastErr.Error(), pgxmock.AnyArg())
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}
	_, err = s.notifier.Notify(ctx, OpsUserID, notificationsModel.TypeOpsAlert, "x", "y", nil, []notificationsModel.Channel{notificationsModel.ChannelInApp})
	return err
}

func TestPostgresDeadLetterSink_Park(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var notified bool
	notifier := &stubOpsNotifier{fn: func() { notified = true }}
	sink := &testSink{mock: mock, notifier: notifier}

	job := Job{Topic: "monitor_probe", IdempotencyKey: "idem-1", Payload: json.RawMessage(`{"application_id":"app-1"}`), Attempt: 5}

	mock.ExpectExec("INSERT INTO dead_letter_jobs").
		WithArgs(job.Topic, job.IdempotencyKey, job.Payload, job.Attempt, "permanent failure", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = sink.park(context.Background(), job, errors.New("permanent failure"))

	require.NoError(t, err)
	assert.True(t, notified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func (s *testSink) list(ctx context.Context, limit int) ([]parkedJob, error) {
	rows, err := s.mock.Query(ctx, `
		SELECT topic, idempotency_key, payload, attempt, error, parked_at
		FROM dead_letter_jobs ORDER BY parked_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []parkedJob
	for rows.Next() {
		var p parkedJob
		if err := rows.Scan(&p.Topic, &p.IdempotencyKey, &p.Payload, &p.Attempt, &p.Error, &p.ParkedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func TestPostgresDeadLetterSink_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink := &testSink{mock: mock}

	rows := pgxmock.NewRows([]string{"topic", "idempotency_key", "payload", "attempt", "error", "parked_at"}).
		AddRow("monitor_probe", "idem-1", json.RawMessage(`{}`), 5, "permanent failure", time.Now())

	mock.ExpectQuery("SELECT topic, idempotency_key, payload, attempt, error, parked_at").
		WithArgs(10).
		WillReturnRows(rows)

	parked, err := sink.list(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, "monitor_probe", parked[0].Topic)

	require.NoError(t, mock.ExpectationsWereMet())
}

type stubOpsNotifier struct {
	fn func()
}

func (s *stubOpsNotifier) Notify(ctx context.Context, userID string, typ notificationsModel.NotificationType, title, message string, data map[string]any, channels []notificationsModel.Channel) (*notificationsModel.NotificationDTO, error) {
	if s.fn != nil {
		s.fn()
	}
	return &notificationsModel.NotificationDTO{}, nil
}
