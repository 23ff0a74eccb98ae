// Package db opens the MySQL database behind the vendor store.
package db

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Database owns a gorm connection pool
type Database interface {
	// DB returns the gorm handle, ErrConnectionNotEstablished once closed
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	// RegisterMetrics exports the pool statistics (open, in use, waits) to reg
	RegisterMetrics(reg prometheus.Registerer) error
	Close() error
}
