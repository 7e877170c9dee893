package contract

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr = common.HexToAddress("0x4e37558d4DFA9c8526724C4c37a5461Ee3720f04")
	creatorAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func newContract(t *testing.T) *Contract {
	t.Helper()
	c, err := New(registryAddr)
	require.NoError(t, err)
	return c
}

func createdLog(t *testing.T, c *Contract, id int64, name string) types.Log {
	t.Helper()
	ev := c.ABI().Events[EventRequestCreated]
	data, err := ev.Inputs.NonIndexed().Pack(name, big.NewInt(5e17), big.NewInt(1700000000))
	require.NoError(t, err)
	return types.Log{
		Address: registryAddr,
		Topics: []common.Hash{
			ev.ID,
			common.BigToHash(big.NewInt(id)),
			common.BytesToHash(creatorAddr.Bytes()),
		},
		Data: data,
	}
}

func TestPackCreateRequest(t *testing.T) {
	c := newContract(t)

	data, err := c.PackCreateRequest(CreateParams{
		PropertyName:    "Villa",
		LoanAmount:      big.NewInt(1e18),
		Description:     "Sea view",
		CollateralType:  "Real Estate",
		LoanTerm:        big.NewInt(12),
		YieldPreference: big.NewInt(8),
		ImageHash:       "ipfs://placeholder-hash",
	})
	require.NoError(t, err)

	method, err := c.ABI().MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "createEstateFlowRequest", method.Name)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 7)
	assert.Equal(t, "Villa", args[0])
	assert.Equal(t, 0, big.NewInt(1e18).Cmp(args[1].(*big.Int)))
	assert.Equal(t, 0, big.NewInt(12).Cmp(args[4].(*big.Int)))
	assert.Equal(t, "ipfs://placeholder-hash", args[6])
}

func TestPackCreateRequest_RequiresNumbers(t *testing.T) {
	_, err := newContract(t).PackCreateRequest(CreateParams{PropertyName: "x"})
	assert.Error(t, err)
}

func TestParseRequestCreated(t *testing.T) {
	c := newContract(t)

	ev, err := c.ParseRequestCreated(createdLog(t, c, 42, "Villa"))
	require.NoError(t, err)
	assert.Equal(t, "42", ev.RequestID.String())
	assert.Equal(t, creatorAddr, ev.Creator)
	assert.Equal(t, "Villa", ev.PropertyName)
	assert.Equal(t, "500000000000000000", ev.LoanAmount.String())
	assert.Equal(t, int64(1700000000), ev.Timestamp.Int64())
}

func TestParseRequestCreated_RejectsForeignLogs(t *testing.T) {
	c := newContract(t)

	other := createdLog(t, c, 1, "x")
	other.Address = creatorAddr
	_, err := c.ParseRequestCreated(other)
	assert.ErrorIs(t, err, ErrNotRequestCreated)

	_, err = c.ParseRequestCreated(types.Log{Address: registryAddr, Topics: []common.Hash{{0x01}}})
	assert.ErrorIs(t, err, ErrNotRequestCreated)
}

func TestFirstRequestCreated_SkipsUnrelatedLogs(t *testing.T) {
	c := newContract(t)
	logs := []types.Log{
		{Address: creatorAddr, Topics: []common.Hash{{0x02}}},
		createdLog(t, c, 7, "First"),
		createdLog(t, c, 8, "Second"),
	}

	ev, ok := c.FirstRequestCreated(logs)
	require.True(t, ok)
	assert.Equal(t, "7", ev.RequestID.String())

	_, ok = c.FirstRequestCreated(nil)
	assert.False(t, ok)
}

func TestParseStatusUpdated(t *testing.T) {
	c := newContract(t)
	ev := c.ABI().Events[EventStatusUpdated]
	data, err := ev.Inputs.NonIndexed().Pack(uint8(0), uint8(2), big.NewInt(99))
	require.NoError(t, err)

	out, err := c.ParseStatusUpdated(types.Log{
		Address: registryAddr,
		Topics:  []common.Hash{ev.ID, common.BigToHash(big.NewInt(3))},
		Data:    data,
	})
	require.NoError(t, err)
	assert.Equal(t, "3", out.RequestID.String())
	assert.Equal(t, uint8(2), out.NewStatus)
	assert.Equal(t, StatusCompleted.String(), Status(out.NewStatus).String())
}

type fakeCaller struct {
	c     *Contract
	total *big.Int
	owner common.Address
	ids   map[common.Address][]*big.Int
	reqs  map[int64]OnChainRequest
}

func (f *fakeCaller) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := f.c.ABI().MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "getTotalRequests":
		return method.Outputs.Pack(f.total)
	case "owner":
		return method.Outputs.Pack(f.owner)
	case "getUserRequests":
		return method.Outputs.Pack(f.ids[args[0].(common.Address)])
	case "getRequest":
		return method.Outputs.Pack(f.reqs[args[0].(*big.Int).Int64()])
	}
	return nil, nil
}

func TestReader(t *testing.T) {
	c := newContract(t)
	req := OnChainRequest{
		Id:              big.NewInt(4),
		Creator:         creatorAddr,
		PropertyName:    "Loft",
		LoanAmount:      big.NewInt(2e18),
		Description:     "Downtown",
		CollateralType:  "Real Estate",
		LoanTerm:        big.NewInt(24),
		YieldPreference: big.NewInt(7),
		ImageHash:       "ipfs://demo-hash-1",
		CreatedAt:       big.NewInt(1700000000),
		Status:          uint8(StatusPending),
	}
	fake := &fakeCaller{
		c:     c,
		total: big.NewInt(9),
		owner: registryAddr,
		ids:   map[common.Address][]*big.Int{creatorAddr: {big.NewInt(4)}},
		reqs:  map[int64]OnChainRequest{4: req},
	}
	r := c.Reader(fake)
	ctx := context.Background()

	total, err := r.GetTotalRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), total.Int64())

	owner, err := r.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, registryAddr, owner)

	got, err := r.RequestsByCreator(ctx, creatorAddr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Loft", got[0].PropertyName)
	assert.Equal(t, creatorAddr, got[0].Creator)
	assert.Equal(t, "2000000000000000000", got[0].LoanAmount.String())
	assert.Equal(t, uint8(StatusPending), got[0].Status)

	none, err := r.GetUserRequests(ctx, registryAddr)
	require.NoError(t, err)
	assert.Empty(t, none)
}
