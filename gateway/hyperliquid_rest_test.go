package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// 测试专用私钥，无任何真实资金。
const testKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	signer, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return &RESTClient{
		BaseURL:    srv.URL,
		Signer:     signer,
		HTTPClient: srv.Client(),
		Limiter:    NopLimiter{},
	}, srv
}

func TestAllMids(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Errorf("path = %s, want /info", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "allMids" {
			t.Errorf("type = %v, want allMids", body["type"])
		}
		_, _ = io.WriteString(w, `{"FEUSD":"1.0015","ETH":"2000.5"}`)
	})

	mids, err := client.AllMids(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mids["FEUSD"] != 1.0015 {
		t.Errorf("FEUSD mid = %v, want 1.0015", mids["FEUSD"])
	}
}

func TestSpotBalances(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"balances":[{"coin":"USDC","sz":"500.25"},{"coin":"FEUSD","sz":"990"}]}`)
	})

	balances, err := client.SpotBalances(context.Background(), client.Signer.Address())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 2 || balances[0].Size != 500.25 || balances[1].Coin != "FEUSD" {
		t.Errorf("unexpected balances: %+v", balances)
	}
}

func TestOpenOrders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"coin":"FEUSD","oid":42,"side":"B","limitPx":"0.99","sz":"20"}]`)
	})

	orders, err := client.OpenOrders(context.Background(), client.Signer.Address())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].OID != 42 || orders[0].LimitPx != 0.99 {
		t.Errorf("unexpected orders: %+v", orders)
	}
}

func TestPlaceOrders_SignsAction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange" {
			t.Errorf("path = %s, want /exchange", r.URL.Path)
		}
		var body struct {
			Action struct {
				Type   string            `json:"type"`
				Orders []json.RawMessage `json:"orders"`
			} `json:"action"`
			Nonce     int64     `json:"nonce"`
			Signature Signature `json:"signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Action.Type != "order" || len(body.Action.Orders) != 2 {
			t.Errorf("unexpected action: %+v", body.Action)
		}
		if body.Nonce == 0 || body.Signature.R == "" || body.Signature.S == "" {
			t.Error("nonce/signature must be attached")
		}
		_, _ = io.WriteString(w, `{"status":"ok","response":{"data":{"statuses":[{"resting":{"oid":1}},{"resting":{"oid":2}}]}}}`)
	})

	oids, err := client.PlaceOrders(context.Background(), []OrderRequest{
		{Coin: "FEUSD", IsBuy: true, Size: 20, LimitPx: 0.99},
		{Coin: "FEUSD", IsBuy: false, Size: 20, LimitPx: 1.05, PostOnly: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(oids) != 2 || oids[0] != 1 || oids[1] != 2 {
		t.Errorf("oids = %v, want [1 2]", oids)
	}
}

func TestPlaceOrders_EmptyIsNoop(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if _, err := client.PlaceOrders(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("empty place must not hit the exchange")
	}
}

func TestCancelOrders_EmptyIsNoop(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if err := client.CancelOrders(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("empty cancel must not hit the exchange")
	}
}

func TestPost_StatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := client.AllMids(context.Background()); err == nil {
		t.Error("non-2xx status must surface as error")
	}
}

func TestOrderRequest_MarshalPostOnly(t *testing.T) {
	raw, err := json.Marshal(OrderRequest{Coin: "FEUSD", IsBuy: true, Size: 20, LimitPx: 0.99, PostOnly: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		OrderType struct {
			Limit struct {
				Tif      string `json:"tif"`
				PostOnly bool   `json:"postOnly"`
			} `json:"limit"`
		} `json:"order_type"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.OrderType.Limit.Tif != "Gtc" || !out.OrderType.Limit.PostOnly {
		t.Errorf("order_type = %+v, want Gtc postOnly", out.OrderType)
	}
}
