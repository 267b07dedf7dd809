// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"fmt"
	"log/slog"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/holiman/uint256"
)

const termTimeFormat = "01-02|15:04:05.000"

func (h *TerminalHandler) format(buf []byte, r slog.Record, usecolor bool) []byte {
	msg := escapeMessage(r.Message)
	var color = ""
	if usecolor {
		switch r.Level {
		case LevelCrit:
			color = "\x1b[35m"
		case slog.LevelError:
			color = "\x1b[31m"
		case slog.LevelWarn:
			color = "\x1b[33m"
		case slog.LevelInfo:
			color = "\x1b[32m"
		case slog.LevelDebug:
			color = "\x1b[36m"
		case LevelTrace:
			color = "\x1b[34m"
		}
	}
	if color != "" {
		buf = append(buf, color...)
		buf = append(buf, LevelAlignedString(r.Level)...)
		buf = append(buf, "\x1b[0m"...)
	} else {
		buf = append(buf, LevelAlignedString(r.Level)...)
	}
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, termTimeFormat)
	buf = append(buf, "] "...)
	buf = append(buf, msg...)

	for _, attr := range h.attrs {
		buf = appendAttr(buf, attr, color)
	}
	r.Attrs(func(attr slog.Attr) bool {
		buf = appendAttr(buf, attr, color)
		return true
	})
	return append(buf, '\n')
}

func appendAttr(buf []byte, attr slog.Attr, color string) []byte {
	buf = append(buf, ' ')
	if color != "" {
		buf = append(buf, color...)
		buf = append(buf, escapeString(attr.Key)...)
		buf = append(buf, "\x1b[0m="...)
	} else {
		buf = append(buf, escapeString(attr.Key)...)
		buf = append(buf, '=')
	}
	return append(buf, formatAttrValue(attr.Value)...)
}

func formatAttrValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return escapeString(v.String())
	case slog.KindInt64:
		return string(appendInt64(nil, v.Int64()))
	case slog.KindUint64:
		return string(appendUint64(nil, v.Uint64(), false))
	case slog.KindTime:
		return v.Time().Format(timeFormat)
	case slog.KindDuration:
		return v.Duration().String()
	}
	switch val := v.Any().(type) {
	case nil:
		return "<nil>"
	case error:
		return escapeString(val.Error())
	case *big.Int:
		if val == nil {
			return "<nil>"
		}
		return val.String()
	case *uint256.Int:
		if val == nil {
			return "<nil>"
		}
		return val.Dec()
	case fmt.Stringer:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "<nil>"
		}
		return escapeString(val.String())
	case time.Time:
		return val.Format(timeFormat)
	}
	return escapeString(fmt.Sprintf("%+v", v.Any()))
}

// appendInt64 formats n with thousand separators.
func appendInt64(dst []byte, n int64) []byte {
	if n < 0 {
		return appendUint64(dst, uint64(-n), true)
	}
	return appendUint64(dst, uint64(n), false)
}

// appendUint64 formats n with thousand separators.
func appendUint64(dst []byte, n uint64, neg bool) []byte {
	if n < 100000 {
		if neg {
			return strconv.AppendInt(dst, -int64(n), 10)
		}
		return strconv.AppendUint(dst, n, 10)
	}
	s := strconv.FormatUint(n, 10)
	var out []byte
	if neg {
		out = append(out, '-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	return append(dst, out...)
}

func escapeString(s string) string {
	needsQuoting := false
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' || r == utf8.RuneError {
			needsQuoting = true
			break
		}
	}
	if !needsQuoting {
		return s
	}
	return strconv.Quote(s)
}

func escapeMessage(s string) string {
	needsQuoting := false
	for _, r := range s {
		if r == '\r' || r == '\n' || r == '\t' {
			needsQuoting = true
			break
		}
	}
	if !needsQuoting {
		return s
	}
	return strings.Trim(strconv.Quote(s), "\"")
}
