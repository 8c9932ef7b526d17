package database

import (
	"context"
	"database/sql"
	"time"
)

// HealthStatus is the health-endpoint view of the database: reachability plus
// pool pressure.
type HealthStatus struct {
	Status          string `json:"status"`
	ResponseTime    int64  `json:"response_time_ms"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	WaitDuration    int64  `json:"wait_duration_ms"`
	MaxOpenConns    int    `json:"max_open_conns"`
}

// Health pings the database and reports pool statistics alongside the
// outcome. Pool statistics are included even when the ping fails.
func Health(ctx context.Context, db *sql.DB) (*HealthStatus, error) {
	stats := db.Stats()
	status := &HealthStatus{
		Status:          "healthy",
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration.Milliseconds(),
		MaxOpenConns:    stats.MaxOpenConnections,
	}

	start := time.Now()
	err := db.PingContext(ctx)
	status.ResponseTime = time.Since(start).Milliseconds()
	if err != nil {
		status.Status = "unhealthy"
		return status, err
	}
	return status, nil
}
