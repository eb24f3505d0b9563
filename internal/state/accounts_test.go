package state

import (
	"context"
	"encoding/json"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/fees"
	"github.com/elys-network/lbp/internal/types"
)

func testPool(creator types.Identity) *types.PoolAccount {
	return &types.PoolAccount{
		AccountType:  types.AccountTypePool,
		Version:      types.PoolAccountVersion,
		Creator:      creator,
		InputAsset:   "sol",
		OutputAsset:  "tkn",
		Decimals:     [2]uint8{9, 6},
		StartTime:    100,
		EndTime:      200,
		StartWeights: [2]uint64{90, 10},
		EndWeights:   [2]uint64{10, 90},
		Balances:     [2]math.Int{math.NewInt(900), math.NewInt(100)},
		TotalShares:  math.NewInt(1_000),
		Shares:       map[types.Identity]math.Int{creator: math.NewInt(1_000)},
		Invariant:    math.NewInt(722),
		SwapEnabled:  true,
		Seeded:       true,
	}
}

func TestAccountRecordRoundTrip(t *testing.T) {
	ledger := fees.NewLedger()
	require.NoError(t, ledger.Accrue("sol", math.NewInt(42)))

	records := []AccountRecord{
		MasterRecord(types.NewMasterAccount("admin")),
		PoolRecord(testPool("alice")),
		FeesRecord(ledger),
	}
	keys := []string{"master", "pool/alice/sol", "fees"}

	for i, r := range records {
		t.Run(r.AccountType.String(), func(t *testing.T) {
			assert.Equal(t, keys[i], r.Key())
			payload, err := EncodeAccount(r)
			require.NoError(t, err)

			decoded, err := DecodeAccount(payload)
			require.NoError(t, err)
			assert.Equal(t, r.AccountType, decoded.AccountType)
			assert.Equal(t, r.Key(), decoded.Key())

			again, err := EncodeAccount(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(payload), string(again))
		})
	}
}

func TestDecodeAccountDispatchesOnDiscriminant(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
	}{
		{"unknown discriminant", `{"account_type": 9, "version": 1, "master": {"account_type": 1}}`, types.ErrUnknownAccountType},
		{"zero discriminant", `{"account_type": 0, "version": 1, "pool": {"account_type": 2}}`, types.ErrUnknownAccountType},
		{"variant does not match discriminant", `{"account_type": 1, "version": 1, "pool": {"account_type": 2}}`, types.ErrInvalidParams},
		{"no variant", `{"account_type": 2, "version": 1}`, types.ErrInvalidParams},
		{"two variants", `{"account_type": 1, "version": 1, "master": {"account_type": 1}, "fees": {"account_type": 3}}`, types.ErrInvalidParams},
		{"inner discriminant mismatch", `{"account_type": 1, "version": 1, "master": {"account_type": 2}}`, types.ErrInvalidParams},
		{"newer layout", `{"account_type": 2, "version": 9, "pool": {"account_type": 2, "version": 9}}`, types.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAccount([]byte(tt.payload))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := DecodeAccount([]byte("not json"))
	assert.Error(t, err)
}

func TestDecodeFeesWithoutBalances(t *testing.T) {
	r, err := DecodeAccount([]byte(`{"account_type": 3, "version": 1, "fees": {"account_type": 3}}`))
	require.NoError(t, err)
	require.NotNil(t, r.Fees.Balances)
	assert.True(t, r.Fees.Balance("sol").IsZero())
}

func TestAssemble(t *testing.T) {
	master := types.NewMasterAccount("admin")
	snap, err := Assemble([]AccountRecord{
		PoolRecord(testPool("zed")),
		MasterRecord(master),
		PoolRecord(testPool("amy")),
	})
	require.NoError(t, err)
	assert.Equal(t, types.Identity("admin"), snap.Master.Admin)
	require.Len(t, snap.Pools, 2)
	assert.Equal(t, types.Identity("amy"), snap.Pools[0].Creator)
	assert.Equal(t, types.Identity("zed"), snap.Pools[1].Creator)
	require.NotNil(t, snap.Fees)
	assert.Empty(t, snap.Fees.Assets())

	_, err = Assemble([]AccountRecord{MasterRecord(master), MasterRecord(master)})
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = Assemble([]AccountRecord{{AccountType: types.AccountTypeUnknown}})
	assert.ErrorIs(t, err, types.ErrUnknownAccountType)
}

func TestRecordsAreDetached(t *testing.T) {
	p := testPool("alice")
	r := PoolRecord(p)
	p.Shares["bob"] = math.NewInt(1)
	p.Balances[0] = math.NewInt(1)

	assert.NotContains(t, r.Pool.Shares, types.Identity("bob"))
	assert.Equal(t, "900", r.Pool.Balances[0].String())
}

func TestAccountStoreCache(t *testing.T) {
	store, err := NewAccountStore(nil, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "master")
	assert.Error(t, err, "a cache miss without a database must fail")

	store.remember(MasterRecord(types.NewMasterAccount("admin")))
	store.remember(PoolRecord(testPool("alice")))
	assert.Equal(t, 2, store.Cached())

	r, err := store.Get(ctx, "master")
	require.NoError(t, err)
	assert.Equal(t, types.Identity("admin"), r.Master.Admin)

	// Capacity two: the least recently used record (the pool) is evicted.
	store.remember(FeesRecord(fees.NewLedger()))
	assert.Equal(t, 2, store.Cached())
	_, err = store.Get(ctx, "pool/alice/sol")
	assert.Error(t, err)
	_, err = store.Get(ctx, "fees")
	assert.NoError(t, err)

	_, err = store.Checkpoint(ctx, []AccountRecord{MasterRecord(types.NewMasterAccount("admin"))}, nil)
	assert.Error(t, err)
	_, err = store.Checkpoint(ctx, nil, nil)
	assert.Error(t, err, "the checkpoint row needs a database even without accounts")

	_, err = NewAccountStore(nil, 0)
	assert.Error(t, err)
}

func TestReceiptAssets(t *testing.T) {
	r := types.Receipt{
		AmountsIn:  map[types.AssetID]math.Int{"sol": math.NewInt(1)},
		AmountsOut: map[types.AssetID]math.Int{"tkn": math.NewInt(2)},
		Fees:       map[types.AssetID]math.Int{"sol": math.NewInt(3)},
	}
	assert.Equal(t, []string{"sol", "tkn"}, ReceiptAssets(r))
	assert.Empty(t, ReceiptAssets(types.Receipt{}))

	payload, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"amounts_in":{"sol":"1"}`)
}

func TestCheckParameterCompatibility(t *testing.T) {
	stored := config.DefaultEngineParameters

	changed, err := CheckParameterCompatibility(stored, stored, 3)
	require.NoError(t, err)
	assert.False(t, changed)

	policy := stored
	policy.TradingWindow = types.TradingWindowUnrestricted
	changed, err = CheckParameterCompatibility(stored, policy, 3)
	require.NoError(t, err)
	assert.True(t, changed)

	rescaled := stored
	rescaled.WeightNormalization = 1_000
	_, err = CheckParameterCompatibility(stored, rescaled, 3)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	changed, err = CheckParameterCompatibility(stored, rescaled, 0)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStoreFunctionsRequireDatabase(t *testing.T) {
	ctx := context.Background()
	saved := DB
	DB = nil
	defer func() { DB = saved }()

	assert.Error(t, SaveReceipt(ctx, types.Receipt{}))
	_, err := GetRecentReceipts(ctx, "", 10)
	assert.Error(t, err)
	_, err = GetCurrentCheckpoint(ctx)
	assert.Error(t, err)
	_, err = LoadCustody(ctx)
	assert.Error(t, err)
	_, err = LoadActiveEngineParameters(ctx)
	assert.Error(t, err)
	_, err = GetEngineSummary(ctx)
	assert.Error(t, err)
	assert.Error(t, EnsureSchema())
	assert.Error(t, TestDBConnection())
}
