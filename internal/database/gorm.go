package database

import (
	"context"
	"fmt"
	"time"

	"listing-portal/internal/config"
	"listing-portal/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type GormDB struct {
	db *gorm.DB
}

var _ Store = (*GormDB)(nil)

// MySQLDSN builds a go-sql-driver DSN.
func MySQLDSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, dbname)
}

// PostgresDSN builds a pgx keyword/value DSN.
func PostgresDSN(host string, port int, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		host, port, user, password, dbname, sslmode)
}

// Open connects to MySQL or Postgres and verifies the connection.
func Open(driver, dsn string, verbose bool) (*GormDB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	level := logger.Warn
	if verbose {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// Connect opens the backend named by cfg.Type and migrates the schema. The
// second return is set only for SQL backends, which also carry the search
// sync queue.
func Connect(cfg config.DatabaseConfig) (Store, *GormDB, error) {
	if cfg.Type == DriverMemory {
		return NewMemoryStore(), nil, nil
	}

	dsn := cfg.URL
	if dsn == "" {
		switch cfg.Type {
		case DriverMySQL:
			m := cfg.MySQL
			dsn = MySQLDSN(m.Host, m.Port, m.User, m.Password, m.Database)
		case DriverPostgres:
			p := cfg.Postgres
			dsn = PostgresDSN(p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
		}
	}

	gdb, err := Open(cfg.Type, dsn, cfg.Verbose)
	if err != nil {
		return nil, nil, err
	}
	if err := gdb.InitSchema(); err != nil {
		_ = gdb.Close()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}
	return gdb, gdb, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Ping(ctx context.Context) error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Account{},
		&models.Property{},
		&models.Enquiry{},
		&models.Page{},
		&models.PropertyChange{},
		&models.DeleteLog{},
		&models.SearchSyncTask{},
	)
}

// countByStatus runs a grouped count over a status column.
func (gdb *GormDB) countByStatus(ctx context.Context, model interface{}) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := gdb.db.WithContext(ctx).Model(model).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
