package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	j, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func caller(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func sampleReceipt(op types.OpType, who crypto.Address, ts time.Time) *types.Receipt {
	return &types.Receipt{
		ID:        uuid.New(),
		Operation: types.Operation{Type: op, Caller: who, Amount: fixedpoint.MustParseDecimal("100")},
		Timestamp: ts,
		Price:     fixedpoint.MustParseDecimal("200"),
		Transfers: []types.TransferRequest{
			{Kind: types.TransferMint, Asset: types.AssetDebt, To: who, Amount: fixedpoint.MustParseDecimal("100")},
			{Kind: types.TransferMove, Asset: types.AssetCollateral, From: who, To: types.ModuleAccount(types.ModuleActivePool), Amount: fixedpoint.MustParseDecimal("1.5")},
		},
		StateDigest: "abcd",
	}
}

func TestAppendAndGet(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	alice := caller(1)
	receipt := sampleReceipt(types.OpOpenTrove, alice, time.Unix(1_700_000_000, 0))

	require.NoError(t, j.Append(ctx, receipt))

	record, err := j.Get(ctx, receipt.ID)
	require.NoError(t, err)
	require.Equal(t, string(types.OpOpenTrove), record.Operation)
	require.Equal(t, alice.String(), record.Caller)
	require.Equal(t, "200", record.Price)
	require.Equal(t, "abcd", record.StateDigest)
	require.Len(t, record.Transfers, 2)
	require.Equal(t, "", record.Transfers[0].From)
	require.Equal(t, "100", record.Transfers[0].Amount)
	require.Equal(t, string(types.TransferMint), record.Transfers[0].Kind)
	require.Equal(t, "1.5", record.Transfers[1].Amount)
	require.Equal(t, types.ModuleAccount(types.ModuleActivePool).String(), record.Transfers[1].To)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(record.Payload), &decoded))
	require.Equal(t, receipt.ID.String(), decoded["id"])
}

func TestGetMissing(t *testing.T) {
	j := setupJournal(t)
	_, err := j.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	receipt := sampleReceipt(types.OpOpenTrove, caller(1), time.Unix(1_700_000_000, 0))
	require.NoError(t, j.Append(ctx, receipt))
	require.Error(t, j.Append(ctx, receipt))

	records, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Transfers, 2)
}

func TestListFiltersAndOrders(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	alice, bob := caller(1), caller(2)
	base := time.Unix(1_700_000_000, 0)

	first := sampleReceipt(types.OpOpenTrove, alice, base)
	second := sampleReceipt(types.OpProvideToStabilityPool, alice, base.Add(time.Minute))
	third := sampleReceipt(types.OpOpenTrove, bob, base.Add(2*time.Minute))
	for _, r := range []*types.Receipt{first, second, third} {
		require.NoError(t, j.Append(ctx, r))
	}

	all, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, third.ID, all[0].ID)
	require.Equal(t, first.ID, all[2].ID)

	byAlice, err := j.List(ctx, Filter{Caller: alice.String()})
	require.NoError(t, err)
	require.Len(t, byAlice, 2)
	require.Equal(t, second.ID, byAlice[0].ID)

	opens, err := j.List(ctx, Filter{Operation: types.OpOpenTrove, Limit: 1})
	require.NoError(t, err)
	require.Len(t, opens, 1)
	require.Equal(t, third.ID, opens[0].ID)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
