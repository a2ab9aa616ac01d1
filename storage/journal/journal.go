package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// ErrNotFound is returned when a receipt is absent from the journal.
var ErrNotFound = errors.New("journal: receipt not found")

const defaultListLimit = 100

// Journal is an append-only store of committed receipts.
type Journal struct {
	db *gorm.DB
}

// Open connects to the journal database. DSNs starting with "postgres" use
// the postgres driver; anything else is treated as a sqlite path.
func Open(dsn string) (*Journal, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("journal: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: nil database")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append persists the receipt and its transfers atomically.
func (j *Journal) Append(ctx context.Context, receipt *types.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("journal: nil receipt")
	}
	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("journal: encode receipt: %w", err)
	}
	record := ReceiptRecord{
		ID:          receipt.ID,
		Operation:   string(receipt.Operation.Type),
		Caller:      receipt.Operation.Caller.String(),
		Timestamp:   receipt.Timestamp.UTC(),
		StateDigest: receipt.StateDigest,
		Payload:     string(payload),
	}
	if receipt.Price != nil {
		record.Price = fixedpoint.FormatDecimal(receipt.Price)
	}
	transfers := make([]TransferRecord, 0, len(receipt.Transfers))
	for i, transfer := range receipt.Transfers {
		transfers = append(transfers, TransferRecord{
			ReceiptID: receipt.ID,
			Seq:       i,
			Kind:      string(transfer.Kind),
			Asset:     string(transfer.Asset),
			From:      addressOrEmpty(transfer.From),
			To:        addressOrEmpty(transfer.To),
			Amount:    fixedpoint.FormatDecimal(transfer.Amount),
		})
	}
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if len(transfers) > 0 {
			if err := tx.Create(&transfers).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Get loads a receipt record with its transfers.
func (j *Journal) Get(ctx context.Context, id uuid.UUID) (*ReceiptRecord, error) {
	var record ReceiptRecord
	err := j.db.WithContext(ctx).
		Preload("Transfers", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Caller    string
	Operation types.OpType
	Limit     int
}

// List returns receipts newest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]ReceiptRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	query := j.db.WithContext(ctx).Model(&ReceiptRecord{})
	if caller := strings.TrimSpace(filter.Caller); caller != "" {
		query = query.Where("caller = ?", caller)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", string(filter.Operation))
	}
	var records []ReceiptRecord
	err := query.
		Preload("Transfers", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("executed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func addressOrEmpty(addr crypto.Address) string {
	if addr == (crypto.Address{}) {
		return ""
	}
	return addr.String()
}
