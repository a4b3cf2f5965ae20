package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DBMetrics collects connection pool statistics from the underlying
// *sql.DB on a fixed interval.
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	waitDuration       *Counter

	interval time.Duration
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	lastWaitDuration time.Duration
}

// NewDBMetrics creates a DBMetrics instance with the given meter.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, interval time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	dm := &DBMetrics{
		interval: interval,
		logger:   logger,
		sqlDB:    sqlDB,
		stopCh:   make(chan struct{}),
	}

	var err error

	dm.poolConnections, err = NewGauge(
		meter,
		"db_pool_connections",
		"Number of connections in the pool by state",
		"{connection}",
	)
	if err != nil {
		return nil, err
	}

	dm.poolConnectionsMax, err = NewGauge(
		meter,
		"db_pool_connections_max",
		"Maximum number of open connections in the pool",
		"{connection}",
	)
	if err != nil {
		return nil, err
	}

	dm.waitDuration, err = NewCounter(
		meter,
		"db_pool_wait_duration_milliseconds_total",
		"Cumulative time spent waiting for a connection",
		"ms",
	)
	if err != nil {
		return nil, err
	}

	return dm, nil
}

// Start begins periodic pool stats collection. Non-blocking.
func (dm *DBMetrics) Start(ctx context.Context) {
	dm.wg.Add(1)
	go func() {
		defer dm.wg.Done()

		ticker := time.NewTicker(dm.interval)
		defer ticker.Stop()

		dm.collect(ctx)

		for {
			select {
			case <-dm.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				dm.collect(ctx)
			}
		}
	}()
}

func (dm *DBMetrics) collect(ctx context.Context) {
	if dm.sqlDB == nil {
		return
	}

	stats := dm.sqlDB.Stats()
	dm.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	dm.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	dm.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))

	// WaitDuration is cumulative; export the delta since the last collection.
	if delta := stats.WaitDuration - dm.lastWaitDuration; delta > 0 {
		dm.waitDuration.Add(ctx, delta.Milliseconds())
		dm.lastWaitDuration = stats.WaitDuration
	}
}

// Stop halts the collection loop and waits for it to exit.
func (dm *DBMetrics) Stop() {
	dm.stopOnce.Do(func() {
		close(dm.stopCh)
	})
	dm.wg.Wait()
}
