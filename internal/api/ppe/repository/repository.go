package ppeRepository

import (
	"PPEGuard/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Sessions: &sessionRepository{q: sqlExecutor, log: r.log},
		Alerts:   &alertRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Sessions interface {
		CreateSession(c context.Context, session entity.AnalysisSession) error
		GetSessionByID(c context.Context, id string) (entity.AnalysisSession, error)
		ListSessions(c context.Context, limit, offset int) ([]entity.AnalysisSession, error)
		UpdateReportURL(c context.Context, id string, reportURL string) error
		DeleteSession(c context.Context, id string) error
	}

	Alerts interface {
		CreateAlerts(c context.Context, alerts []entity.StoredAlert) error
		GetAlertsBySessionID(c context.Context, sessionID string) ([]entity.StoredAlert, error)
		DeleteAlertsBySessionID(c context.Context, sessionID string) error
	}

	Commit   func() error
	Rollback func() error
}

type sessionRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type alertRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
