package state

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"solusd/core/types"
	"solusd/storage"
)

// Txn buffers every write, transfer request and event produced by one
// operation. Commit persists the writes in a single batch; Discard drops
// everything.
type Txn struct {
	manager   *Manager
	writes    map[string][]byte
	transfers []types.TransferRequest
	events    []*types.Event
	closed    bool
}

func (t *Txn) get(key []byte, out interface{}) (bool, error) {
	if t.closed {
		return false, ErrTxnClosed
	}
	if data, ok := t.writes[string(key)]; ok {
		if data == nil {
			return false, nil
		}
		return true, rlp.DecodeBytes(data, out)
	}
	return t.manager.KVGet(key, out)
}

func (t *Txn) put(key []byte, value interface{}) error {
	if t.closed {
		return ErrTxnClosed
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	t.writes[string(key)] = encoded
	return nil
}

func (t *Txn) delete(key []byte) error {
	if t.closed {
		return ErrTxnClosed
	}
	t.writes[string(key)] = nil
	return nil
}

// RecordTransfer queues a token movement for the host.
func (t *Txn) RecordTransfer(req types.TransferRequest) {
	if req.Amount == nil || req.Amount.IsZero() {
		return
	}
	req.Amount = req.Amount.Clone()
	t.transfers = append(t.transfers, req)
}

// Emit queues an event for the receipt.
func (t *Txn) Emit(evt *types.Event) {
	if evt == nil {
		return
	}
	t.events = append(t.events, evt)
}

// Transfers returns the queued transfer requests.
func (t *Txn) Transfers() []types.TransferRequest {
	return append([]types.TransferRequest(nil), t.transfers...)
}

// Events returns the queued events.
func (t *Txn) Events() []*types.Event {
	return append([]*types.Event(nil), t.events...)
}

// Pending returns the number of buffered writes.
func (t *Txn) Pending() int {
	return len(t.writes)
}

// Commit writes the buffered entities atomically and returns a blake3 digest
// of the write set.
func (t *Txn) Commit() ([]byte, error) {
	if t.closed {
		return nil, ErrTxnClosed
	}
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hasher := blake3.New(32, nil)
	batch := storage.NewBatch()
	for _, k := range keys {
		value := t.writes[k]
		hasher.Write([]byte(k))
		hasher.Write(value)
		if value == nil {
			batch.Delete(physicalKey([]byte(k)))
			continue
		}
		batch.Put(physicalKey([]byte(k)), value)
	}
	if err := t.manager.db.Write(batch); err != nil {
		return nil, fmt.Errorf("state: commit: %w", err)
	}
	t.closed = true
	return hasher.Sum(nil), nil
}

// Discard drops every buffered change.
func (t *Txn) Discard() {
	t.closed = true
	t.writes = nil
	t.transfers = nil
	t.events = nil
}
