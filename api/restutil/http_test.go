// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/runtime"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{BadRequest(errors.New("x")), http.StatusBadRequest},
		{Forbidden(errors.New("x")), http.StatusForbidden},
		{errors.Wrap(runtime.ErrNoContract, "address"), http.StatusNotFound},
		{errors.Wrap(reverts.ErrZeroAmount, "deposit"), http.StatusBadRequest},
		{reverts.ErrUnauthorized, http.StatusForbidden},
		{reverts.ErrWrongProposalState, http.StatusConflict},
		{reverts.WithCause(reverts.ErrCreationFailed, reverts.ErrProposalNotInVoting), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusOf(tt.err), tt.err.Error())
	}
}

func TestWrapHandlerFunc(t *testing.T) {
	h := WrapHandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		if r.URL.Query().Get("fail") != "" {
			return errors.Wrap(reverts.ErrMaxCapReached, "deposit")
		}
		return WriteJSON(w, map[string]string{"ok": "yes"})
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, JSONContentType, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/?fail=1", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "state", resp.Kind)
	assert.Equal(t, "max_cap_reached", resp.Code)
	assert.Equal(t, "deposit: pool max cap reached", resp.Error)
}

func TestParseJSON(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, ParseJSON(strings.NewReader(`{"a":1}`), &v))
	assert.Equal(t, 1, v.A)
	assert.Error(t, ParseJSON(strings.NewReader(`{"b":1}`), &v))
}
