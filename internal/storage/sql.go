package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      source,
                      config)
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    source,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    source,
    config
FROM sessions
ORDER BY start_time, id`

	insertScanSQL = `
INSERT INTO scans (session_id,
                   start_time,
                   duration_ms,
                   band,
                   start_frequency,
                   end_frequency,
                   points_per_sample)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectScanSQL = `
SELECT
    id,
    session_id,
    start_time,
    duration_ms,
    band,
    start_frequency,
    end_frequency,
    points_per_sample
FROM scans
WHERE
    id = ?`

	selectScansSQL = `
SELECT
    id,
    session_id,
    start_time,
    duration_ms,
    band,
    start_frequency,
    end_frequency,
    points_per_sample
FROM scans
WHERE
    session_id = ?
ORDER BY start_time, id`

	insertScanPointSQL = `
    INSERT INTO scan_points (
        scan_id,
        frequency,
        forward_mean,
        reverse_mean,
        vswr
    )
    VALUES `

	selectScanPointsSQL = `
SELECT
    frequency,
    forward_mean,
    reverse_mean,
    vswr
FROM scan_points
WHERE
    scan_id = ?
ORDER BY frequency`

	insertScanSummarySQL = `
INSERT INTO scan_summaries (scan_id,
                            min_swr,
                            max_swr,
                            avg_fwd_min,
                            avg_fwd_max,
                            avg_fwd_sd,
                            avg_rev_min,
                            avg_rev_max,
                            avg_rev_sd,
                            groups_computed,
                            scan_group_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectScanSummarySQL = `
SELECT
    min_swr,
    max_swr,
    avg_fwd_min,
    avg_fwd_max,
    avg_fwd_sd,
    avg_rev_min,
    avg_rev_max,
    avg_rev_sd,
    groups_computed,
    scan_group_count
FROM scan_summaries
WHERE
    scan_id = ?`
)
