package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func validConfig() *Config {
	return (&Config{Host: "localhost", User: "cachekit", Password: "p@ss:word", Database: "vendors"}).MergeDefaults()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty password allowed", func(c *Config) { c.Password = "" }, false},
		{"no host", func(c *Config) { c.Host = "" }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"no user", func(c *Config) { c.User = "" }, true},
		{"no database", func(c *Config) { c.Database = "" }, true},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 100 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"log level case insensitive", func(c *Config) { c.LogLevel = "INFO" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := validConfig()
	cfg.Loc = "UTC"

	dsn, err := cfg.DSN()
	if err != nil {
		t.Fatalf("DSN failed: %v", err)
	}
	for _, want := range []string{"cachekit:p@ss:word@tcp(localhost:3306)/vendors?", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected %q in %q", want, dsn)
		}
	}

	cfg.Loc = "Nowhere/Invalid"
	if _, err := cfg.DSN(); err == nil {
		t.Error("expected unknown location to fail")
	}
}

func TestNewMySQL_InvalidConfig(t *testing.T) {
	if _, err := NewMySQL(zap.NewNop(), nil); err == nil {
		t.Error("expected nil config to fail")
	}
	if _, err := NewMySQL(zap.NewNop(), &Config{}); err == nil {
		t.Error("expected empty config to fail")
	}
}

// newLazyDatabase opens a pool without dialing; sql.Open connects on first use
func newLazyDatabase(t *testing.T) *mysqlDatabase {
	t.Helper()
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "cachekit:secret@tcp(127.0.0.1:1)/vendors",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}
	return &mysqlDatabase{logger: zap.NewNop(), name: "vendors", db: gdb}
}

func TestMySQL_RegisterMetrics(t *testing.T) {
	d := newLazyDatabase(t)
	defer d.Close()

	reg := prometheus.NewRegistry()
	if err := d.RegisterMetrics(reg); err != nil {
		t.Fatalf("RegisterMetrics failed: %v", err)
	}
	n, err := testutil.GatherAndCount(reg, "go_sql_max_open_connections")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one pool series, got %d", n)
	}

	if err := d.RegisterMetrics(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMySQL_Close(t *testing.T) {
	d := newLazyDatabase(t)

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
	if _, err := d.DB(); !errors.Is(err, ErrConnectionNotEstablished) {
		t.Errorf("expected ErrConnectionNotEstablished, got %v", err)
	}
	if err := d.Ping(context.Background()); !errors.Is(err, ErrConnectionNotEstablished) {
		t.Errorf("expected Ping after Close to fail, got %v", err)
	}
	if err := d.RegisterMetrics(prometheus.NewRegistry()); !errors.Is(err, ErrConnectionNotEstablished) {
		t.Errorf("expected RegisterMetrics after Close to fail, got %v", err)
	}
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		elapsed time.Duration
		err     error
		wantMsg string
	}{
		{"error", "warn", 0, errors.New("deadlock"), "sql error"},
		{"record not found is silent", "warn", 0, gorm.ErrRecordNotFound, ""},
		{"slow", "warn", 2 * time.Second, nil, "slow sql"},
		{"fast below info", "warn", 0, nil, ""},
		{"trace at info", "info", 0, nil, "sql trace"},
		{"silent", "silent", 2 * time.Second, errors.New("x"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			g := newGormLogger(zap.New(core), tt.level, time.Second)

			g.Trace(context.Background(), time.Now().Add(-tt.elapsed), func() (string, int64) {
				return "SELECT 1", 1
			}, tt.err)

			if tt.wantMsg == "" {
				if logs.Len() != 0 {
					t.Errorf("expected no logs, got %v", logs.All())
				}
				return
			}
			if logs.FilterMessage(tt.wantMsg).Len() != 1 {
				t.Errorf("expected %q, got %v", tt.wantMsg, logs.All())
			}
		})
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	g := newGormLogger(zap.NewNop(), "warn", time.Second)
	if lm := g.LogMode(glogger.Info).(*gormLogger); lm.level != glogger.Info || lm.slowThreshold != time.Second {
		t.Errorf("unexpected logger %+v", lm)
	}
	if g.level != glogger.Warn {
		t.Error("LogMode must not mutate the receiver")
	}
}
