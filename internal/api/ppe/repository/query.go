package ppeRepository

const (
	queryCreateSession = `
		INSERT INTO ppe_sessions (
			id,
			name,
			source,
			frame_count,
			alert_count,
			duration,
			report_url,
			created_at,
			updated_at
		) VALUES (
			:id,
			:name,
			:source,
			:frame_count,
			:alert_count,
			:duration,
			:report_url,
			:created_at,
			:updated_at
		)
	`

	queryGetSessionByID = `
		SELECT
			id,
			name,
			source,
			frame_count,
			alert_count,
			duration,
			report_url,
			created_at,
			updated_at
		FROM ppe_sessions
		WHERE id = :id
	`

	queryListSessions = `
		SELECT
			id,
			name,
			source,
			frame_count,
			alert_count,
			duration,
			report_url,
			created_at,
			updated_at
		FROM ppe_sessions
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryUpdateReportURL = `
		UPDATE ppe_sessions
		SET
			report_url = :report_url,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryDeleteSession = `
		DELETE FROM ppe_sessions
		WHERE id = :id
	`

	queryCreateAlert = `
		INSERT INTO ppe_alerts (
			id,
			session_id,
			person_id,
			start_time,
			duration,
			source_record,
			created_at
		) VALUES (
			:id,
			:session_id,
			:person_id,
			:start_time,
			:duration,
			:source_record,
			:created_at
		)
	`

	queryGetAlertsBySessionID = `
		SELECT
			id,
			session_id,
			person_id,
			start_time,
			duration,
			source_record,
			created_at
		FROM ppe_alerts
		WHERE session_id = :session_id
		ORDER BY start_time ASC, person_id ASC
	`

	queryDeleteAlertsBySessionID = `
		DELETE FROM ppe_alerts
		WHERE session_id = :session_id
	`
)
