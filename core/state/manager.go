package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"solusd/storage"
)

// ErrTxnClosed is returned when a committed or discarded Txn is reused.
var ErrTxnClosed = errors.New("state: transaction closed")

// Manager persists engine entities as RLP records in a key-value store.
type Manager struct {
	db storage.Database
}

// NewManager wraps db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a buffered transaction. Nothing reaches the database until
// Commit succeeds.
func (m *Manager) Begin() *Txn {
	return &Txn{
		manager: m,
		writes:  make(map[string][]byte),
	}
}

// Close releases the underlying database.
func (m *Manager) Close() {
	if m != nil && m.db != nil {
		m.db.Close()
	}
}

func (m *Manager) load(key []byte) ([]byte, error) {
	data, err := m.db.Get(physicalKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// KVGet decodes the record stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.load(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
