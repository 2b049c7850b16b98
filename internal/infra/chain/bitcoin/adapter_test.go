package bitcoin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/vietddude/walletnotify/internal/core/domain"
)

// MockRPCClient implements rpc.Caller for testing
type MockRPCClient struct {
	CallFunc func(ctx context.Context, method string, params []any) (any, error)
	calls    []string
}

func (m *MockRPCClient) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	m.calls = append(m.calls, method)
	result, err := m.CallFunc(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

const (
	mainnetAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	testnetAddr = "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"
	bech32Addr  = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
)

func TestAdapter_ValidateAddress(t *testing.T) {
	adapter, err := NewAdapter(&MockRPCClient{}, "BTC")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	tests := []struct {
		name    string
		address string
		netcode string
		want    bool
	}{
		{"mainnet p2pkh", mainnetAddr, "BTC", true},
		{"mainnet bech32", bech32Addr, "BTC", true},
		{"testnet on testnet", testnetAddr, "XTN", true},
		{"testnet on mainnet", testnetAddr, "BTC", false},
		{"mainnet on testnet", mainnetAddr, "XTN", false},
		{"garbage", "not-an-address", "BTC", false},
		{"empty", "", "BTC", false},
		{"unknown netcode", mainnetAddr, "LTC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ValidateAddress(tt.address, tt.netcode); got != tt.want {
				t.Errorf("ValidateAddress(%q, %q) = %v, want %v", tt.address, tt.netcode, got, tt.want)
			}
		})
	}
}

func TestAdapter_GetTransaction(t *testing.T) {
	mock := &MockRPCClient{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			if method != "gettransaction" || params[0] != "abc" {
				t.Fatalf("unexpected call %s %v", method, params)
			}
			return map[string]any{
				"txid":          "abc",
				"confirmations": 2,
				"details": []any{
					map[string]any{"category": "send", "address": mainnetAddr, "amount": -0.5},
					map[string]any{"category": "receive", "address": bech32Addr, "amount": 0.25},
				},
			}, nil
		},
	}

	adapter, _ := NewAdapter(mock, "BTC")
	tx, err := adapter.GetTransaction(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Confirmations != 2 {
		t.Errorf("expected 2 confirmations, got %d", tx.Confirmations)
	}
	if len(tx.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(tx.Outputs))
	}
	if tx.Outputs[1].Category != domain.CategoryReceive || tx.Outputs[1].Amount != 0.25 {
		t.Errorf("unexpected output: %+v", tx.Outputs[1])
	}
}

func TestAdapter_GetInfo(t *testing.T) {
	mock := &MockRPCClient{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			switch method {
			case "getblockcount":
				return 800000, nil
			case "getbalance":
				return 1.5, nil
			}
			return nil, errors.New("unexpected method")
		},
	}

	adapter, _ := NewAdapter(mock, "BTC")
	info, err := adapter.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Blocks != 800000 || info.Balance != 1.5 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestAdapter_SendToAddress(t *testing.T) {
	var gotAmount any
	mock := &MockRPCClient{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			gotAmount = params[1]
			return "txid-1", nil
		},
	}

	adapter, _ := NewAdapter(mock, "BTC")
	txid, err := adapter.SendToAddress(context.Background(), mainnetAddr, 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txid != "txid-1" {
		t.Errorf("txid = %q", txid)
	}
	if gotAmount != 0.01 {
		t.Errorf("amount sent = %v, want 0.01", gotAmount)
	}

	_, err = adapter.SendToAddress(context.Background(), "bogus", 1)
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	if len(mock.calls) != 1 {
		t.Errorf("invalid address reached the node")
	}
}

func TestAdapter_PropagatesRPCErrors(t *testing.T) {
	mock := &MockRPCClient{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			return nil, errors.New("connection refused")
		},
	}

	adapter, _ := NewAdapter(mock, "BTC")
	if _, err := adapter.GetBalance(context.Background(), "*", 0); err == nil {
		t.Error("expected error")
	}
}

func TestNewAdapter_UnknownNetcode(t *testing.T) {
	if _, err := NewAdapter(&MockRPCClient{}, "DOGE"); err == nil {
		t.Error("expected error")
	}
}
