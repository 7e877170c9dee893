package submit

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider/providertest"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
)

const (
	account = "0x1111111111111111111111111111111111111111"
	txHash  = "0xabababababababababababababababababababababababababababababababab"
)

var registryAddr = common.HexToAddress(constants.DefaultContractAddress)

type fakeSession struct {
	p       provider.Provider
	account string
}

func (f *fakeSession) Provider() provider.Provider { return f.p }
func (f *fakeSession) Account() string             { return f.account }

type failingCache struct{}

func (failingCache) Add(context.Context, requests.Draft) (requests.Request, error) {
	return requests.Request{}, errors.New("disk full")
}

type fixture struct {
	wallet   *providertest.Provider
	session  *fakeSession
	store    *requests.Store
	contract *contract.Contract
	sub      *Submitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c, err := contract.New(registryAddr)
	require.NoError(t, err)

	wallet := providertest.New().Respond(provider.MethodChainID, constants.DefaultChainIDHex)
	sess := &fakeSession{p: wallet, account: account}
	store := requests.NewStore(requests.NewMemoryBackend(), requests.WithIDs(func() string { return "local-1" }))
	require.NoError(t, store.Clear(context.Background()))

	network := chains.NetworkConfig{
		Name:       "sepolia",
		ChainIDHex: constants.DefaultChainIDHex,
		Explorer:   "https://sepolia.etherscan.io",
	}
	sub := New(sess, chains.NewGuarantor(network), c, store, Config{PollInterval: time.Millisecond})
	sub.now = func() time.Time { return time.UnixMilli(1700000000123) }

	return &fixture{wallet: wallet, session: sess, store: store, contract: c, sub: sub}
}

func validForm() FormData {
	return FormData{
		PropertyName:    "Harbor Loft",
		LoanAmount:      "2.5",
		Description:     "Two bedroom loft",
		CollateralType:  "Real Estate",
		LoanTerm:        "24 months",
		YieldPreference: "7.5",
	}
}

func (f *fixture) minedReceipt(t *testing.T, status uint64, requestID int64) rpcReceipt {
	t.Helper()
	ev := f.contract.ABI().Events[contract.EventRequestCreated]
	data, err := ev.Inputs.NonIndexed().Pack("Harbor Loft", big.NewInt(25e17), big.NewInt(1700000000))
	require.NoError(t, err)

	st := hexutil.Uint64(status)
	return rpcReceipt{
		TransactionHash: common.HexToHash(txHash),
		BlockNumber:     (*hexutil.Big)(big.NewInt(77)),
		Status:          &st,
		Logs: []rpcLog{{
			Address: registryAddr,
			Topics: []common.Hash{
				ev.ID,
				common.BigToHash(big.NewInt(requestID)),
				common.BytesToHash(common.HexToAddress(account).Bytes()),
			},
			Data: data,
		}},
	}
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)

	var polls atomic.Int32
	receipt := f.minedReceipt(t, 1, 42)
	f.wallet.Respond(provider.MethodSendTransaction, txHash)
	f.wallet.Handle(provider.MethodTransactionReceipt, func([]any) (any, error) {
		if polls.Add(1) < 3 {
			return nil, nil
		}
		return receipt, nil
	})

	res, err := f.sub.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, "42", res.RequestID)
	assert.Equal(t, txHash, res.Transaction.Hash)
	assert.True(t, res.Transaction.Confirmed)
	assert.Equal(t, uint64(1), res.Transaction.ReceiptStatus)
	assert.Equal(t, uint64(77), res.Transaction.BlockNumber)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+txHash, res.Transaction.ExplorerURL)
	assert.Equal(t, int32(3), polls.Load())

	st := f.sub.State()
	assert.False(t, st.IsSubmitting)
	assert.Empty(t, st.Error)
	assert.Equal(t, txHash, st.TxHash)

	sent := f.wallet.Calls()
	var args sendTxArgs
	for _, c := range sent {
		if c.Method == provider.MethodSendTransaction {
			args = c.Params[0].(sendTxArgs)
		}
	}
	assert.Equal(t, account, args.From)
	assert.Equal(t, registryAddr.Hex(), args.To)
	assert.Equal(t, "0x0", args.Value)

	data, err := hexutil.Decode(args.Data)
	require.NoError(t, err)
	method, err := f.contract.ABI().MethodById(data[:4])
	require.NoError(t, err)
	in, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", in[1].(*big.Int).String())
	assert.Equal(t, "24", in[4].(*big.Int).String())
	assert.Equal(t, "7", in[5].(*big.Int).String())
	assert.Equal(t, constants.PlaceholderImageHash, in[6])

	require.NotNil(t, res.Request)
	cached, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cached, 1)
	r := cached[0]
	assert.Equal(t, "Harbor Loft", r.Property)
	assert.Equal(t, 7.5, r.Rate)
	assert.Equal(t, 24, r.Months)
	assert.Equal(t, 2.5, r.LoanAmount)
	assert.Equal(t, requests.StatusOpen, r.Status)
	assert.Equal(t, constants.DefaultTotalProofs, r.TotalProofs)
	assert.Equal(t, constants.PlaceholderImage, r.Image)
	assert.Equal(t, account, r.Creator)
	assert.Equal(t, txHash, r.TxHash)
	assert.Equal(t, "42", r.BlockchainID)
	assert.True(t, r.LocalEcho)
}

func TestSubmit_ImageUsesDemoHash(t *testing.T) {
	f := newFixture(t)
	f.wallet.Respond(provider.MethodSendTransaction, txHash)
	f.wallet.Respond(provider.MethodTransactionReceipt, f.minedReceipt(t, 1, 5))

	form := validForm()
	form.PropertyImage = "/uploads/loft.jpg"
	res, err := f.sub.Submit(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/loft.jpg", res.Request.Image)

	var data []byte
	for _, c := range f.wallet.Calls() {
		if c.Method == provider.MethodSendTransaction {
			data, err = hexutil.Decode(c.Params[0].(sendTxArgs).Data)
			require.NoError(t, err)
		}
	}
	method, err := f.contract.ABI().MethodById(data[:4])
	require.NoError(t, err)
	in, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, "ipfs://demo-hash-1700000000123", in[6])
}

func TestSubmit_FallbackRequestIDWithoutEvent(t *testing.T) {
	f := newFixture(t)
	receipt := f.minedReceipt(t, 1, 1)
	receipt.Logs = nil
	f.wallet.Respond(provider.MethodSendTransaction, txHash)
	f.wallet.Respond(provider.MethodTransactionReceipt, receipt)

	res, err := f.sub.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", res.RequestID)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)

	form := validForm()
	form.Description = "  "
	_, err := f.sub.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, constants.SubmitMissingFieldsText, err.Error())
	assert.Equal(t, constants.SubmitMissingFieldsText, f.sub.State().Error)
	assert.Empty(t, f.wallet.Calls())

	f.session.account = ""
	_, err = f.sub.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, constants.SessionConnectWalletFirst, err.Error())
	assert.Empty(t, f.wallet.Calls())
}

func TestSubmit_NetworkFailureStopsBeforeSend(t *testing.T) {
	f := newFixture(t)
	f.wallet.Respond(provider.MethodChainID, "0x1")
	f.wallet.Fail(provider.MethodSwitchChain, provider.NewError(provider.CodeUserRejected, "nope"))

	_, err := f.sub.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, "Failed to switch to Sepolia network", err.Error())
	assert.Zero(t, f.wallet.CallCount(provider.MethodSendTransaction))
	assert.False(t, f.sub.State().IsSubmitting)
}

func TestSubmit_SendErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"rejected", provider.NewError(provider.CodeUserRejected, "User denied"), constants.SubmitRejectedText},
		{"internal", provider.NewError(provider.CodeInternal, "boom"), constants.SubmitInternalRPCErrorText},
		{"other code", provider.NewError(-32000, "insufficient funds"), "insufficient funds"},
		{"no message", provider.NewError(-32000, ""), constants.SubmitFailedText},
		{"plain", errors.New("socket closed"), "socket closed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.wallet.Fail(provider.MethodSendTransaction, tc.err)

			_, err := f.sub.Submit(context.Background(), validForm())
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())

			st := f.sub.State()
			assert.Equal(t, tc.want, st.Error)
			assert.False(t, st.IsSubmitting)
			assert.Empty(t, st.TxHash)
		})
	}
}

func TestSubmit_Reverted(t *testing.T) {
	f := newFixture(t)
	f.wallet.Respond(provider.MethodSendTransaction, txHash)
	f.wallet.Respond(provider.MethodTransactionReceipt, f.minedReceipt(t, 0, 9))

	_, err := f.sub.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, constants.SubmitRevertedText, err.Error())
	assert.Equal(t, txHash, f.sub.State().TxHash)

	cached, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestSubmit_ContextCancelledWhilePolling(t *testing.T) {
	f := newFixture(t)
	f.sub.cfg.PollInterval = time.Hour
	f.wallet.Respond(provider.MethodSendTransaction, txHash)
	f.wallet.Respond(provider.MethodTransactionReceipt, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.sub.Submit(ctx, validForm())
	require.Error(t, err)
	assert.Equal(t, context.DeadlineExceeded.Error(), err.Error())
	assert.False(t, f.sub.State().IsSubmitting)
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.wallet.Handle(provider.MethodSendTransaction, func([]any) (any, error) {
		<-release
		return txHash, nil
	})
	f.wallet.Respond(provider.MethodTransactionReceipt, f.minedReceipt(t, 1, 3))

	done := make(chan error, 1)
	go func() {
		_, err := f.sub.Submit(context.Background(), validForm())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.sub.State().IsSubmitting }, time.Second, time.Millisecond)

	_, err := f.sub.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSubmit_CacheFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture(t)
	f.sub.cache = failingCache{}
	f.wallet.Respond(provider.MethodSendTransaction, txHash)
	f.wallet.Respond(provider.MethodTransactionReceipt, f.minedReceipt(t, 1, 8))

	res, err := f.sub.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, "8", res.RequestID)
	assert.Nil(t, res.Request)
}

func TestResetAndClearError(t *testing.T) {
	f := newFixture(t)
	f.sub.state = State{Error: "x", TxHash: txHash}

	f.sub.ClearError()
	assert.Equal(t, State{TxHash: txHash}, f.sub.State())

	f.sub.Reset()
	assert.Equal(t, State{}, f.sub.State())
}
