// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendUint64(t *testing.T) {
	assert.Equal(t, "999", string(appendUint64(nil, 999, false)))
	assert.Equal(t, "1,000,000", string(appendUint64(nil, 1_000_000, false)))
	assert.Equal(t, "-123,456", string(appendInt64(nil, -123456)))
}

func TestTerminalHandler(t *testing.T) {
	var buf bytes.Buffer
	var lvl slog.LevelVar
	lvl.Set(slog.LevelInfo)
	l := NewLogger(NewTerminalHandlerWithLevel(&buf, &lvl, false))

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.With("pkg", "ledger").Info("deposited", "amount", big.NewInt(5), "staker", "cosmos1a b")
	out := buf.String()
	assert.Contains(t, out, "INFO ")
	assert.Contains(t, out, "deposited pkg=ledger amount=5")
	assert.Contains(t, out, `staker="cosmos1a b"`)
}

func TestWithContextFollowsRoot(t *testing.T) {
	l := WithContext("pkg", "test")
	defer SetDefault(NewLogger(DiscardHandler()))

	var buf bytes.Buffer
	var lvl slog.LevelVar
	SetDefault(NewLogger(NewHandler(&buf, FormatJSON, &lvl, false)))
	l.Info("hello", "k", 1)
	assert.Contains(t, buf.String(), `"pkg":"test"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestFromLegacyLevel(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, slog.LevelInfo, FromLegacyLevel(3))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
	assert.Equal(t, LevelCrit, FromLegacyLevel(-1))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	assert.NoError(t, err)
	assert.Equal(t, FormatTerminal, f)

	f, err = ParseFormat("logfmt")
	assert.NoError(t, err)
	assert.Equal(t, FormatLogfmt, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestLogfmtHandler(t *testing.T) {
	var buf bytes.Buffer
	var lvl slog.LevelVar
	lvl.Set(slog.LevelWarn)
	l := NewLogger(NewHandler(&buf, FormatLogfmt, &lvl, false))

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("max cap reached", "total", big.NewInt(1000))
	assert.Contains(t, buf.String(), "lvl=warn")
	assert.Contains(t, buf.String(), `msg="max cap reached" total=1000`)
}
