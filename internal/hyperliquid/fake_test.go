package hyperliquid

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

const filledResponse = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.001","avgPx":"60010.0","oid":77}}]}}}`

// fakeAPI serves canned info answers and records exchange submissions.
type fakeAPI struct {
	t         *testing.T
	mu        sync.Mutex
	metaCalls int
	exchanges []exchangeCapture
	reply     string
	status    int
}

type exchangeCapture struct {
	Action    OrderAction `json:"action"`
	Nonce     uint64      `json:"nonce"`
	Signature Signature   `json:"signature"`
	Vault     *string     `json:"vaultAddress"`
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{t: t, reply: filledResponse, status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Path {
	case "/info":
		var req map[string]string
		if err := json.Unmarshal(body, &req); err != nil {
			f.t.Errorf("bad info body: %s", body)
		}
		switch req["type"] {
		case "meta":
			f.metaCalls++
			_, _ = w.Write([]byte(`{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":50},{"name":"ETH","szDecimals":4,"maxLeverage":50}]}`))
		case "allMids":
			_, _ = w.Write([]byte(`{"BTC":"60000.5","ETH":"3000"}`))
		case "clearinghouseState":
			_, _ = w.Write([]byte(`{"assetPositions":[{"type":"oneWay","position":{"coin":"ETH","szi":"-0.5","entryPx":"3100.0","positionValue":"1500","unrealizedPnl":"50","liquidationPx":null,"marginUsed":"75","returnOnEquity":"0.6"}}],"marginSummary":{"accountValue":"1000","totalNtlPos":"1500","totalRawUsd":"2500","totalMarginUsed":"75"},"withdrawable":"900"}`))
		default:
			f.t.Errorf("unexpected info type %q", req["type"])
		}
	case "/exchange":
		var capture exchangeCapture
		if err := json.Unmarshal(body, &capture); err != nil {
			f.t.Errorf("bad exchange body: %s", body)
		}
		f.exchanges = append(f.exchanges, capture)
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.reply))
	default:
		f.t.Errorf("unexpected path %s", r.URL.Path)
	}
}

func (f *fakeAPI) lastExchange() exchangeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.exchanges) == 0 {
		f.t.Fatalf("no exchange requests recorded")
	}
	return f.exchanges[len(f.exchanges)-1]
}

func (f *fakeAPI) metaCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metaCalls
}

func (f *fakeAPI) setReply(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.reply = body
}
