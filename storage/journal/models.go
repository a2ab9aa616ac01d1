package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReceiptRecord is the persisted form of a committed operation receipt.
type ReceiptRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Operation   string    `gorm:"index"`
	Caller      string    `gorm:"index"`
	Timestamp   time.Time `gorm:"column:executed_at;index"`
	Price       string
	StateDigest string
	Payload     string           `gorm:"type:text"`
	Transfers   []TransferRecord `gorm:"foreignKey:ReceiptID"`
	CreatedAt   time.Time
}

// TransferRecord is a single token movement requested by a receipt.
type TransferRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ReceiptID uuid.UUID `gorm:"type:uuid;index"`
	Seq       int
	Kind      string
	Asset     string `gorm:"index"`
	From      string `gorm:"index"`
	To        string `gorm:"index"`
	Amount    string
}

// AutoMigrate creates or updates the journal tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ReceiptRecord{}, &TransferRecord{})
}
