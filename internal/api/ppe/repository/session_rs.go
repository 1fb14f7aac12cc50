package ppeRepository

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type SessionDB struct {
	ID         sql.NullString  `db:"id"`
	Name       sql.NullString  `db:"name"`
	Source     sql.NullInt16   `db:"source"`
	FrameCount sql.NullInt64   `db:"frame_count"`
	AlertCount sql.NullInt64   `db:"alert_count"`
	Duration   sql.NullFloat64 `db:"duration"`
	ReportURL  sql.NullString  `db:"report_url"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (r *sessionRepository) CreateSession(c context.Context, session entity.AnalysisSession) error {
	requestID := contextPkg.GetRequestID(c)
	now := time.Now()
	argsKV := map[string]interface{}{
		"id":          session.ID,
		"name":        session.Name,
		"source":      session.Source.Value(),
		"frame_count": session.FrameCount,
		"alert_count": session.AlertCount,
		"duration":    session.Duration,
		"report_url":  sql.NullString{String: session.ReportURL, Valid: session.ReportURL != ""},
		"created_at":  now,
		"updated_at":  now,
	}

	query, args, err := sqlx.Named(queryCreateSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateSession")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("Database error when creating session")
		return err
	}

	return nil
}

func (r *sessionRepository) GetSessionByID(c context.Context, id string) (entity.AnalysisSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var session SessionDB

	query, args, err := sqlx.Named(queryGetSessionByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID named query preparation err")
		return entity.AnalysisSession{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": id,
			}).Warn("GetSessionByID no rows found")
			return entity.AnalysisSession{}, ppe.ErrSessionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID execution err")
		return entity.AnalysisSession{}, err
	}

	return r.makeSession(session), nil
}

func (r *sessionRepository) ListSessions(c context.Context, limit, offset int) ([]entity.AnalysisSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var sessions []SessionDB

	argsKV := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}

	query, args, err := sqlx.Named(queryListSessions, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListSessions named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &sessions, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListSessions execution err")
		return nil, err
	}

	result := make([]entity.AnalysisSession, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, r.makeSession(session))
	}

	return result, nil
}

func (r *sessionRepository) UpdateReportURL(c context.Context, id string, reportURL string) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":         id,
		"report_url": reportURL,
		"updated_at": time.Now(),
	}

	query, args, err := sqlx.Named(queryUpdateReportURL, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateReportURL named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateReportURL execution err")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateReportURL rows affected err")
		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
		}).Warn("UpdateReportURL no rows affected")
		return ppe.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) DeleteSession(c context.Context, id string) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryDeleteSession, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteSession named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteSession execution err")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ppe.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) makeSession(s SessionDB) entity.AnalysisSession {
	return entity.AnalysisSession{
		ID:         s.ID.String,
		Name:       s.Name.String,
		Source:     entity.SessionSource(s.Source.Int16),
		FrameCount: int(s.FrameCount.Int64),
		AlertCount: int(s.AlertCount.Int64),
		Duration:   s.Duration.Float64,
		ReportURL:  s.ReportURL.String,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
