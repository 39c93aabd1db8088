package persistence

import (
	"fmt"
	"math/big"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shadowline-labs/monadarb/internal/execution"
	"github.com/shadowline-labs/monadarb/internal/lifecycle"
)

// BlockLifecycleRecord is the database row shape for one BlockLifecycle.
// Big integers are stored as strings to avoid column-width surprises.
type BlockLifecycleRecord struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement"`
	BlockNumber          uint64    `gorm:"index;not null"`
	SpreadAtProposedBps  int32     `gorm:"not null"`
	SpreadAtFinalizedBps int32     `gorm:"not null"`
	SpreadDeltaBps       int32     `gorm:"not null"`
	ProposedToFinalizedMs int64    `gorm:"not null"`
	Outcome              string    `gorm:"type:varchar(32);not null"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (BlockLifecycleRecord) TableName() string { return "block_lifecycles" }

// ExecutionReportRecord is the database row shape for one settled
// execution attempt, covering both the sequential and atomic paths with a
// Mode discriminator.
type ExecutionReportRecord struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	Mode            string    `gorm:"type:varchar(16);not null"`
	Success         bool      `gorm:"not null"`
	GasLimit        uint64    `gorm:"not null"`
	GasCostWei      string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	ProfitWei       string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	Error           string    `gorm:"type:varchar(255)"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (ExecutionReportRecord) TableName() string { return "execution_reports" }

// ExecutionRecorder is a supplemental, queryable sink for execution
// reports and block-lifecycle records, run alongside the canonical JSONL
// files. The JSONL files remain authoritative.
type ExecutionRecorder struct {
	db *gorm.DB
}

// NewExecutionRecorder opens a MySQL connection using dsn (format
// "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local")
// and migrates both row shapes.
func NewExecutionRecorder(dsn string) (*ExecutionRecorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return NewExecutionRecorderWithDB(db)
}

// NewExecutionRecorderWithDB wraps an existing GORM DB instance (e.g. one
// backed by go-sqlmock in tests), migrating both row shapes.
func NewExecutionRecorderWithDB(db *gorm.DB) (*ExecutionRecorder, error) {
	if err := db.AutoMigrate(&BlockLifecycleRecord{}, &ExecutionReportRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &ExecutionRecorder{db: db}, nil
}

// RecordLifecycle inserts one BlockLifecycle row.
func (r *ExecutionRecorder) RecordLifecycle(b *lifecycle.BlockLifecycle) error {
	record := BlockLifecycleRecord{
		BlockNumber:           b.BlockNumber,
		SpreadAtProposedBps:   b.SpreadAtProposedBps,
		SpreadAtFinalizedBps:  b.SpreadAtFinalizedBps,
		SpreadDeltaBps:        b.SpreadDeltaBps,
		ProposedToFinalizedMs: b.ProposedToFinalized.Milliseconds(),
		Outcome:               b.Outcome.String(),
	}
	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("failed to record block lifecycle: %w", result.Error)
	}
	return nil
}

// RecordSequential inserts one sequential-path execution report row.
func (r *ExecutionRecorder) RecordSequential(rep *execution.SequentialReport) error {
	return r.recordExecution("sequential", rep.Success, rep.Swap2.GasLimit, rep.TotalGasCostWei, rep.ProfitWei, rep.Error)
}

// RecordAtomic inserts one atomic-path execution report row.
func (r *ExecutionRecorder) RecordAtomic(rep *execution.AtomicReport) error {
	return r.recordExecution("atomic", rep.Success, rep.GasLimit, rep.GasCostWei, rep.ActualProfitWei, rep.Error)
}

func (r *ExecutionRecorder) recordExecution(mode string, success bool, gasLimit uint64, gasCostWei, profitWei *big.Int, errMsg string) error {
	record := ExecutionReportRecord{
		Mode:       mode,
		Success:    success,
		GasLimit:   gasLimit,
		GasCostWei: bigIntToString(gasCostWei),
		ProfitWei:  bigIntToString(profitWei),
		Error:      errMsg,
	}
	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("failed to record execution report: %w", result.Error)
	}
	return nil
}

// LatestLifecycle returns the BlockLifecycleRecord with the highest block
// number.
func (r *ExecutionRecorder) LatestLifecycle() (*BlockLifecycleRecord, error) {
	var record BlockLifecycleRecord
	result := r.db.Order("block_number DESC").First(&record)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get latest lifecycle record: %w", result.Error)
	}
	return &record, nil
}

// CountExecutions returns the total number of recorded execution reports.
func (r *ExecutionRecorder) CountExecutions() (int64, error) {
	var count int64
	result := r.db.Model(&ExecutionReportRecord{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count execution reports: %w", result.Error)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (r *ExecutionRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}

func bigIntToString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
