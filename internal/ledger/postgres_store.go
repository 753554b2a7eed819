package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore 把接触账本写入 PostgreSQL
// 表结构见 scripts/schema.sql，按 (person, other_person) 去重累加
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore 连接数据库并创建账本存储
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return &PostgresStore{db: db, logger: logger}, nil
}

// NewPostgresStoreWithDB 用现有连接创建存储，供测试注入
func NewPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Record 累加一段接触的风险百分比，封顶 100
func (s *PostgresStore) Record(person, other string, risk float64, start, end time.Time) error {
	query := `
		INSERT INTO contact_ledger (person, other_person, risk_percent, contact_count, first_contact, last_contact)
		VALUES ($1, $2, LEAST(100.0, $3), 1, $4, $5)
		ON CONFLICT (person, other_person) DO UPDATE SET
			risk_percent = LEAST(100.0, contact_ledger.risk_percent + $3),
			contact_count = contact_ledger.contact_count + 1,
			last_contact = $5
	`
	_, err := s.db.Exec(query, person, other, risk*100.0, start.UTC(), end.UTC())
	if err != nil {
		return fmt.Errorf("failed to record contact: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
