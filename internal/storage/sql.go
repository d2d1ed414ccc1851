package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time, mode, config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT id, start_time, mode, config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id, start_time, mode, config
FROM sessions
ORDER BY start_time`

	insertDetectionSQL = `
INSERT INTO detections (session_id, timestamp, peak_index, peak_value, snr_db, noise_floor)
VALUES (?, ?, ?, ?, ?, ?)`

	insertMetricsSQL = `
INSERT INTO channel_metrics (session_id, timestamp, rms_delay_spread, coherence_bandwidth,
                             anomaly_score, detected, cfr_db)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertAngleSQL = `
INSERT INTO angle_estimates (session_id, timestamp, angle_deg, raw_phase_rad, corrected_phase)
VALUES (?, ?, ?, ?, ?)`

	insertMessageSQL = `
INSERT INTO messages (session_id, timestamp, text)
VALUES (?, ?, ?)`

	selectCFRHistorySQL = `
SELECT timestamp, rms_delay_spread, coherence_bandwidth, anomaly_score, cfr_db
FROM channel_metrics
WHERE session_id = ?
ORDER BY timestamp`
)

//go:embed schema.sql
var schemaSQL string
