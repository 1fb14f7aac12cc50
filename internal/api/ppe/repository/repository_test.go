package ppeRepository

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(sqlx.NewDb(db, "postgres"), log), mock
}

var sessionColumns = []string{
	"id", "name", "source", "frame_count", "alert_count", "duration", "report_url", "created_at", "updated_at",
}

func TestCreateSession(t *testing.T) {
	repo, mock := newMockRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO ppe_sessions").
		WithArgs("01HSESSION", "gate", 1, 12, 2, 11.0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = client.Sessions.CreateSession(context.Background(), entity.AnalysisSession{
		ID:         "01HSESSION",
		Name:       "gate",
		Source:     entity.SessionSourceDetections,
		FrameCount: 12,
		AlertCount: 2,
		Duration:   11,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSessionByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM ppe_sessions").
		WithArgs("01HSESSION").
		WillReturnRows(sqlmock.NewRows(sessionColumns).
			AddRow("01HSESSION", "gate", 2, 30, 1, 29.0, nil, created, created))

	session, err := client.Sessions.GetSessionByID(context.Background(), "01HSESSION")
	require.NoError(t, err)

	assert.Equal(t, entity.AnalysisSession{
		ID:         "01HSESSION",
		Name:       "gate",
		Source:     entity.SessionSourceImages,
		FrameCount: 30,
		AlertCount: 1,
		Duration:   29,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSessionByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM ppe_sessions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	_, err = client.Sessions.GetSessionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ppe.ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	repo, mock := newMockRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	created := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM ppe_sessions (.+) LIMIT").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(sessionColumns).
			AddRow("b", "", 3, 4, 0, 3.0, nil, created, created).
			AddRow("a", "night", 1, 9, 2, 8.0, "https://bucket/report.json", created, created))

	sessions, err := client.Sessions.ListSessions(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, entity.SessionSourceLive, sessions[0].Source)
	assert.Equal(t, "https://bucket/report.json", sessions[1].ReportURL)
}

func TestUpdateReportURLMissingSession(t *testing.T) {
	repo, mock := newMockRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE ppe_sessions").
		WithArgs("https://bucket/report.json", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = client.Sessions.UpdateReportURL(context.Background(), "missing", "https://bucket/report.json")
	assert.ErrorIs(t, err, ppe.ErrSessionNotFound)
}

func TestCreateAlertsInTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ppe_alerts").
		WithArgs("alert-1", "01HSESSION", 7, 2.0, 3.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ppe_alerts").
		WithArgs("alert-2", "01HSESSION", 9, 4.0, 3.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	client, err := repo.NewClient(true)
	require.NoError(t, err)

	err = client.Alerts.CreateAlerts(context.Background(), []entity.StoredAlert{
		{ID: "alert-1", SessionID: "01HSESSION", Alert: entity.AlertInterval{PersonID: 7, StartTime: 2, Duration: 3}},
		{ID: "alert-2", SessionID: "01HSESSION", Alert: entity.AlertInterval{PersonID: 9, StartTime: 4, Duration: 3}},
	})
	require.NoError(t, err)
	require.NoError(t, client.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlertsBySessionIDDecodesSourceRecord(t *testing.T) {
	repo, mock := newMockRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	record := `{"person_id":7,"timestamp":2,"box":{"left":0,"top":0,"width":0,"height":0},` +
		`"present":[],"missing":[{"body_part":"HEAD","body_part_label":"cabeza","canonical_equipment_type":"HELMET","type_label":"Casco"}],"has_alarm":true}`

	mock.ExpectQuery("SELECT (.+) FROM ppe_alerts").
		WithArgs("01HSESSION").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "person_id", "start_time", "duration", "source_record", "created_at"}).
			AddRow("alert-1", "01HSESSION", 7, 2.0, 3.0, []byte(record), time.Now()))

	alerts, err := client.Alerts.GetAlertsBySessionID(context.Background(), "01HSESSION")
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	got := alerts[0].Alert
	assert.Equal(t, int64(7), got.PersonID)
	assert.Equal(t, 5.0, got.End())
	assert.True(t, got.SourceRecord.HasAlarm)
	require.Len(t, got.SourceRecord.Missing, 1)
	assert.Equal(t, entity.EquipmentHelmet, got.SourceRecord.Missing[0].CanonicalEquipmentType)
}
