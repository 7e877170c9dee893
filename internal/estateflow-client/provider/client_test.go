package provider

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEth struct {
	accounts   []string
	chainID    string
	requestErr error
	pushed     [][]string
}

func (f *fakeEth) Accounts() []string { return f.accounts }

func (f *fakeEth) RequestAccounts() ([]string, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return f.accounts, nil
}

func (f *fakeEth) ChainId() string { return f.chainID }

func (f *fakeEth) AccountsChanged(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	go func() {
		for _, a := range f.pushed {
			_ = notifier.Notify(sub.ID, a)
		}
	}()
	return sub, nil
}

func (f *fakeEth) ChainChanged(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	return notifier.CreateSubscription(), nil
}

func newInProc(t *testing.T, eth *fakeEth) *Client {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", eth))
	t.Cleanup(srv.Stop)

	c := NewClient(rpc.DialInProc(srv), "inproc")
	t.Cleanup(c.Close)
	return c
}

func TestClient_RequestDecodesResults(t *testing.T) {
	c := newInProc(t, &fakeEth{accounts: []string{"0xabc", "0xdef"}, chainID: "0xaa36a7"})
	ctx := context.Background()

	raw, err := c.Request(ctx, MethodAccounts)
	require.NoError(t, err)
	accounts, err := DecodeAccounts(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, accounts)

	raw, err = c.Request(ctx, MethodChainID)
	require.NoError(t, err)
	id, err := DecodeString(raw)
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", id)
}

func TestClient_RequestKeepsProviderCode(t *testing.T) {
	c := newInProc(t, &fakeEth{requestErr: NewError(CodeUserRejected, "User rejected the request.")})

	_, err := c.Request(context.Background(), MethodRequestAccounts)
	require.Error(t, err)

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeUserRejected, pe.Code)
	assert.Equal(t, "User rejected the request.", pe.Message)
	assert.True(t, IsCode(err, CodeUserRejected))
}

func TestClient_UnknownMethodIsRPCError(t *testing.T) {
	c := newInProc(t, &fakeEth{})

	_, err := c.Request(context.Background(), MethodSwitchChain, map[string]string{"chainId": "0x1"})
	require.Error(t, err)
	assert.Equal(t, -32601, Code(err))
}

func TestClient_ListenForwardsAccounts(t *testing.T) {
	c := newInProc(t, &fakeEth{pushed: [][]string{{"0x111"}, {}}})

	events := make(chan Event, 4)
	sub := c.SubscribeEvents(events)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Listen(ctx) }()

	for _, want := range [][]string{{"0x111"}, {}} {
		select {
		case ev := <-events:
			assert.Equal(t, EventAccountsChanged, ev.Kind)
			assert.Equal(t, want, ev.Accounts)
		case <-time.After(5 * time.Second):
			t.Fatal("no accountsChanged event")
		}
	}
}

func TestDetect_EmptyURLNotDetected(t *testing.T) {
	_, err := Detect(context.Background(), "  ", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotDetected))
}

func TestAsError_PlainErrorIsNotProvider(t *testing.T) {
	_, ok := AsError(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, 0, Code(nil))
}

func TestDecodeNull(t *testing.T) {
	accounts, err := DecodeAccounts([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, accounts)
	assert.True(t, IsNull(nil))
}
