package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/storage/memory"
	"github.com/vietddude/walletnotify/internal/ledger"
)

type fakeNode struct {
	valid   map[string]bool
	sent    []int64
	sendErr error
	nextTx  string
	newAddr string
}

func (n *fakeNode) GetNewAddress(ctx context.Context) (string, error) { return n.newAddr, nil }

func (n *fakeNode) ValidateAddress(address, netcode string) bool { return n.valid[address] }

func (n *fakeNode) SendToAddress(ctx context.Context, address string, amount int64) (string, error) {
	if n.sendErr != nil {
		return "", n.sendErr
	}
	n.sent = append(n.sent, amount)
	return n.nextTx, nil
}

func (n *fakeNode) GetTransaction(ctx context.Context, txid string) (*domain.TransactionDetail, error) {
	return nil, errors.New("not implemented")
}

func (n *fakeNode) GetBalance(ctx context.Context, account string, minConf int) (float64, error) {
	return 0, nil
}

func (n *fakeNode) GetInfo(ctx context.Context) (*domain.NodeInfo, error) {
	return &domain.NodeInfo{}, nil
}

func newService() (*Service, *fakeNode, *memory.MemoryStorage) {
	node := &fakeNode{valid: map[string]bool{"dest": true}, nextTx: "tx9", newAddr: "fresh"}
	store := memory.NewMemoryStorage()
	svc := NewService(Config{Network: "bitcoin", Netcode: "BTC", Currency: "BTC"}, node, store, ledger.New(store, "BTC"))
	return svc, node, store
}

func TestService_SendDecrementsBothBalancesImmediately(t *testing.T) {
	ctx := context.Background()
	svc, node, _ := newService()

	amount, err := domain.ParseMajor("0.01")
	require.NoError(t, err)

	debit, err := svc.Send(ctx, SendRequest{Address: "dest", Amount: amount})
	require.NoError(t, err)
	assert.Equal(t, "tx9", debit.TxID)
	assert.Equal(t, domain.DebitStateUnconfirmed, debit.State)
	assert.Equal(t, []int64{1000000}, node.sent)

	bal, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000000), bal.Available)
	assert.Equal(t, int64(-1000000), bal.Total)
}

func TestService_SendRejectsInvalidAddress(t *testing.T) {
	svc, node, _ := newService()

	_, err := svc.Send(context.Background(), SendRequest{Address: "bogus", Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.Empty(t, node.sent)
}

func TestService_SendNodeFailureLeavesBalance(t *testing.T) {
	ctx := context.Background()
	svc, node, _ := newService()
	node.sendErr = errors.New("Insufficient funds")

	_, err := svc.Send(ctx, SendRequest{Address: "dest", Amount: 5})
	require.Error(t, err)

	bal, _ := svc.Balance(ctx)
	assert.Zero(t, bal.Total)
}

func TestService_ConfirmSend(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newService()

	debit, err := svc.Send(ctx, SendRequest{Address: "dest", Amount: 1000000})
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmSend(ctx, "dest", 1000000, "tx9:0"))
	require.NoError(t, svc.ConfirmSend(ctx, "dest", 1000000, "tx9:0"), "confirming twice is a no-op")

	got, err := store.Debits().GetByRefID(ctx, "tx9:0")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, debit.ID, got.ID)
	assert.Equal(t, domain.DebitStateComplete, got.State)

	// Sends made outside the service are ignored.
	assert.NoError(t, svc.ConfirmSend(ctx, "elsewhere", 1, "other:0"))
}

func TestService_NewAddressRecordsOwner(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newService()

	addr, err := svc.NewAddress(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "fresh", addr)

	owner, err := store.Addresses().Get(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, int64(42), owner.AccountID)
}
