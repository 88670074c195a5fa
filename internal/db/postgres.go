package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bohemiyan/accesscontrol/internal/config"
)

// PostgresDB wraps both sql.DB and gorm.DB
type PostgresDB struct {
	DB     *sql.DB
	GormDB *gorm.DB
}

// NewPostgresDB opens and pings a PostgreSQL connection, then wraps it
// with GORM.
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	return &PostgresDB{DB: db, GormDB: gormDB}, nil
}

// Close closes the underlying connection.
func (p *PostgresDB) Close() error {
	if err := p.DB.Close(); err != nil {
		return fmt.Errorf("failed to close sql.DB: %w", err)
	}
	return nil
}
