// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/builtin"
	"github.com/lsmpool/lsmpool/genesis"
	"github.com/lsmpool/lsmpool/health"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/lvldb"
	"github.com/lsmpool/lsmpool/runtime"
)

var (
	staker = genesis.DevAccounts[0]
	owner  = genesis.DevOwner
	val    = genesis.DevValidators[0]
)

func newServer(t *testing.T) (*httptest.Server, lsm.Address) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	rt := runtime.New(db, logDB, "stake")
	require.NoError(t, builtin.Register(rt))
	h := &health.Health{}
	rt.OnCommit(func(r *runtime.Receipt) { h.NewCommit(r.Height) })
	addr, err := genesis.NewDevnet().Build(context.Background(), rt)
	require.NoError(t, err)
	h.SetReady(true)

	handler, closeSubs := New(rt, addr, logDB, Options{
		AllowedOrigins:  "*",
		LogsLimit:       100,
		EnableReqLogger: true,
		EnableMetrics:   true,
		EnableDev:       true,
		Health:          h,
	})
	t.Cleanup(closeSubs)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts, addr
}

func httpDo(t *testing.T, method, url string, body any) ([]byte, int, http.Header) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return data, res.StatusCode, res.Header
}

func decode[T any](t *testing.T, data []byte) T {
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type execBody struct {
	Sender lsm.Address `json:"sender"`
	Msg    any         `json:"msg"`
	Funds  lsm.Coins   `json:"funds,omitempty"`
}

func TestPoolFlow(t *testing.T) {
	ts, addr := newServer(t)

	data, code, _ := httpDo(t, http.MethodGet, ts.URL+"/pool", nil)
	require.Equal(t, http.StatusOK, code, string(data))
	cfg := decode[map[string]any](t, data)
	assert.Equal(t, addr.String(), cfg["address"])
	assert.Equal(t, owner.String(), cfg["owner"])
	assert.Equal(t, val, cfg["validator"])

	data, code, _ = httpDo(t, http.MethodPost, ts.URL+"/dev/shares", map[string]any{
		"owner": staker, "validator": val, "amount": "1000",
	})
	require.Equal(t, http.StatusOK, code, string(data))
	share := decode[lsm.Coin](t, data)

	data, code, _ = httpDo(t, http.MethodPost, ts.URL+"/contracts/"+addr.String()+"/execute", &execBody{
		Sender: staker,
		Msg:    map[string]any{"deposit": map[string]any{}},
		Funds:  lsm.Coins{share},
	})
	require.Equal(t, http.StatusOK, code, string(data))
	receipt := decode[map[string]any](t, data)
	assert.Equal(t, addr.String(), receipt["contract"])
	assert.NotEmpty(t, receipt["events"])

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/pool/stakers/"+staker.String(), nil)
	require.Equal(t, http.StatusOK, code, string(data))
	info := decode[map[string]any](t, data)
	assert.Equal(t, "1000", info["staked_amount"])

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/pool/total", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total_staked":"1000","unassigned":"0"}`, string(data))

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/pool/stakers?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	stakers := decode[map[string][]map[string]any](t, data)
	assert.Len(t, stakers["stakers"], 1)

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/pool/proposal", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "idle", decode[map[string]any](t, data)["phase"])

	data, code, _ = httpDo(t, http.MethodPost, ts.URL+"/events", map[string]any{"type": "wasm", "contract": addr})
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Len(t, decode[[]map[string]any](t, data), 1)
}

func TestErrors(t *testing.T) {
	ts, addr := newServer(t)
	execute := ts.URL + "/contracts/" + addr.String() + "/execute"

	tests := []struct {
		name   string
		method string
		url    string
		body   any
		status int
		code   string
	}{
		{"no funds", http.MethodPost, execute, &execBody{Sender: staker, Msg: map[string]any{"deposit": map[string]any{}}}, http.StatusBadRequest, "wrong_coin_count"},
		{"not owner", http.MethodPost, execute, &execBody{Sender: staker, Msg: map[string]any{"close_proposal": map[string]any{}}}, http.StatusForbidden, "unauthorized"},
		{"wrong phase", http.MethodPost, execute, &execBody{Sender: owner, Msg: map[string]any{"close_proposal": map[string]any{}}}, http.StatusConflict, "wrong_proposal_state"},
		{"empty pool", http.MethodPost, execute, &execBody{Sender: staker, Msg: map[string]any{"deposit_rewards": map[string]any{}}, Funds: lsm.Coins{lsm.NewCoin("stake", big.NewInt(5))}}, http.StatusConflict, "empty_pool"},
		{"bad sender", http.MethodPost, execute, &execBody{Sender: "alice", Msg: map[string]any{"deposit": map[string]any{}}}, http.StatusBadRequest, ""},
		{"unknown body field", http.MethodPost, execute, map[string]any{"foo": 1}, http.StatusBadRequest, ""},
		{"no contract", http.MethodPost, ts.URL + "/contracts/" + staker.String() + "/query", map[string]any{"msg": map[string]any{"config": map[string]any{}}}, http.StatusNotFound, ""},
		{"bad address", http.MethodGet, ts.URL + "/pool/stakers/xyz", nil, http.StatusBadRequest, ""},
		{"bad limit", http.MethodGet, ts.URL + "/pool/stakers?limit=-1", nil, http.StatusBadRequest, ""},
		{"pool is not a locker", http.MethodGet, ts.URL + "/lockers/" + addr.String(), nil, http.StatusNotFound, ""},
		{"events over limit", http.MethodPost, ts.URL + "/events", map[string]any{"options": map[string]any{"limit": 1000}}, http.StatusForbidden, ""},
		{"unknown status", http.MethodPut, ts.URL + "/dev/proposals/9", map[string]any{"status": "open"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, status, _ := httpDo(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.status, status, string(data))
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[restutil.ErrorResponse](t, data).Code)
			}
		})
	}
}

func TestProposalLifecycle(t *testing.T) {
	ts, addr := newServer(t)
	execute := ts.URL + "/contracts/" + addr.String() + "/execute"

	data, code, _ := httpDo(t, http.MethodPost, ts.URL+"/dev/shares", map[string]any{
		"owner": staker, "validator": val, "amount": "300",
	})
	require.Equal(t, http.StatusOK, code, string(data))
	share := decode[lsm.Coin](t, data)
	_, code, _ = httpDo(t, http.MethodPost, execute, &execBody{Sender: staker, Msg: map[string]any{"deposit": map[string]any{}}, Funds: lsm.Coins{share}})
	require.Equal(t, http.StatusOK, code)

	data, code, _ = httpDo(t, http.MethodPost, execute, &execBody{
		Sender: owner,
		Msg:    map[string]any{"open_proposal": map[string]any{"proposal_id": 1, "code_id": builtin.LockerCodeID}},
	})
	require.Equal(t, http.StatusOK, code, string(data))

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/pool/proposal", nil)
	require.Equal(t, http.StatusOK, code)
	var rec struct {
		Phase   string `json:"phase"`
		Round   uint64 `json:"round"`
		Lockers []struct {
			Option  string      `json:"option"`
			Address lsm.Address `json:"address"`
		} `json:"lockers"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "active", rec.Phase)
	assert.Equal(t, uint64(1), rec.Round)
	require.Len(t, rec.Lockers, 4)

	_, code, _ = httpDo(t, http.MethodPost, execute, &execBody{
		Sender: staker,
		Msg:    map[string]any{"rent_voting_power": map[string]any{"amount": "100", "option": rec.Lockers[0].Option}},
	})
	require.Equal(t, http.StatusOK, code)

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/lockers/"+rec.Lockers[0].Address.String(), nil)
	require.Equal(t, http.StatusOK, code, string(data))
	locker := decode[map[string]any](t, data)
	assert.Equal(t, "100", locker["voting_power"])
	assert.Equal(t, rec.Lockers[0].Option, locker["vote"])
	assert.Equal(t, true, locker["voted"])

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/dev/proposals/1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":1,"status":"voting_period","votes":4}`, string(data))

	_, code, _ = httpDo(t, http.MethodPut, ts.URL+"/dev/proposals/1", map[string]any{"status": "passed"})
	require.Equal(t, http.StatusOK, code)
	data, code, _ = httpDo(t, http.MethodPost, execute, &execBody{Sender: owner, Msg: map[string]any{"close_proposal": map[string]any{}}})
	require.Equal(t, http.StatusOK, code, string(data))

	data, code, _ = httpDo(t, http.MethodGet, ts.URL+"/pool/total", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total_staked":"300","unassigned":"0"}`, string(data))

	_, code, _ = httpDo(t, http.MethodDelete, ts.URL+"/dev/proposals/1", nil)
	assert.Equal(t, http.StatusNoContent, code)
	_, code, _ = httpDo(t, http.MethodGet, ts.URL+"/dev/proposals/1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRequestID(t *testing.T) {
	ts, _ := newServer(t)

	_, code, header := httpDo(t, http.MethodGet, ts.URL+"/pool/index", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, header.Get(requestIDHeader))
	assert.NotEmpty(t, header.Get("x-lsmpool-ver"))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/pool/index", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "abc", res.Header.Get(requestIDHeader))
}

func TestDoc(t *testing.T) {
	ts, _ := newServer(t)

	data, code, _ := httpDo(t, http.MethodGet, ts.URL+"/doc/lsmpool.yaml", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(data), "openapi: 3.0.0")
}

func TestHealth(t *testing.T) {
	ts, _ := newServer(t)

	data, code, _ := httpDo(t, http.MethodGet, ts.URL+"/node/health", nil)
	require.Equal(t, http.StatusOK, code)
	status := decode[health.Status](t, data)
	assert.True(t, status.Healthy)
	// genesis substrate update and pool instantiation
	assert.Equal(t, uint64(2), status.Height)
	assert.NotNil(t, status.LastCommit)
}

func TestSubscribeEvents(t *testing.T) {
	ts, addr := newServer(t)

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events?type=wasm&contract=" + addr.String()
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	data, code, _ := httpDo(t, http.MethodPost, ts.URL+"/dev/shares", map[string]any{
		"owner": staker, "validator": val, "amount": "10",
	})
	require.Equal(t, http.StatusOK, code, string(data))
	share := decode[lsm.Coin](t, data)
	data, code, _ = httpDo(t, http.MethodPost, ts.URL+"/contracts/"+addr.String()+"/execute", &execBody{
		Sender: staker,
		Msg:    map[string]any{"deposit": map[string]any{}},
		Funds:  lsm.Coins{share},
	})
	require.Equal(t, http.StatusOK, code, string(data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev logdb.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "wasm", ev.Type)
	assert.Equal(t, addr, ev.Contract)
	assert.Equal(t, staker, ev.Sender)
	assert.Equal(t, uint64(4), ev.Height)

	_, code, _ = httpDo(t, http.MethodGet, ts.URL+"/subscriptions/events?contract=xyz", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
