package ppeRepository

import (
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type AlertDB struct {
	ID           sql.NullString  `db:"id"`
	SessionID    sql.NullString  `db:"session_id"`
	PersonID     sql.NullInt64   `db:"person_id"`
	StartTime    sql.NullFloat64 `db:"start_time"`
	Duration     sql.NullFloat64 `db:"duration"`
	SourceRecord []byte          `db:"source_record"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r *alertRepository) CreateAlerts(c context.Context, alerts []entity.StoredAlert) error {
	requestID := contextPkg.GetRequestID(c)
	now := time.Now()

	for _, alert := range alerts {
		record, err := json.Marshal(alert.Alert.SourceRecord)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to encode alert source record")
			return err
		}

		argsKV := map[string]interface{}{
			"id":            alert.ID,
			"session_id":    alert.SessionID,
			"person_id":     alert.Alert.PersonID,
			"start_time":    alert.Alert.StartTime,
			"duration":      alert.Alert.Duration,
			"source_record": record,
			"created_at":    now,
		}

		query, args, err := sqlx.Named(queryCreateAlert, argsKV)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to build SQL query for CreateAlerts")
			return err
		}
		query = r.q.Rebind(query)

		if _, err = r.q.ExecContext(c, query, args...); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": alert.SessionID,
				"error":      err.Error(),
			}).Error("Database error when creating alert")
			return err
		}
	}

	return nil
}

func (r *alertRepository) GetAlertsBySessionID(c context.Context, sessionID string) ([]entity.StoredAlert, error) {
	requestID := contextPkg.GetRequestID(c)
	var alerts []AlertDB

	query, args, err := sqlx.Named(queryGetAlertsBySessionID, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAlertsBySessionID named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &alerts, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAlertsBySessionID execution err")
		return nil, err
	}

	result := make([]entity.StoredAlert, 0, len(alerts))
	for _, alert := range alerts {
		stored, err := r.makeAlert(alert)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"alert_id":   alert.ID.String,
				"error":      err.Error(),
			}).Error("Failed to decode alert source record")
			return nil, err
		}
		result = append(result, stored)
	}

	return result, nil
}

func (r *alertRepository) DeleteAlertsBySessionID(c context.Context, sessionID string) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryDeleteAlertsBySessionID, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteAlertsBySessionID named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteAlertsBySessionID execution err")
		return err
	}

	return nil
}

func (r *alertRepository) makeAlert(a AlertDB) (entity.StoredAlert, error) {
	var record entity.ComplianceRecord
	if len(a.SourceRecord) > 0 {
		if err := json.Unmarshal(a.SourceRecord, &record); err != nil {
			return entity.StoredAlert{}, err
		}
	}

	return entity.StoredAlert{
		ID:        a.ID.String,
		SessionID: a.SessionID.String,
		Alert: entity.AlertInterval{
			PersonID:     a.PersonID.Int64,
			StartTime:    a.StartTime.Float64,
			Duration:     a.Duration.Float64,
			SourceRecord: record,
		},
		CreatedAt: a.CreatedAt,
	}, nil
}
