// Package logx is the firmware's leveled console logger.
//
// Lines are "<Level>: arg arg arg". With no sink set, lines go through the
// builtin println (the MCU console); platforms install their own writer
// (SWO, UART, a test buffer) with SetOutput.
package logx

import (
	"io"
	"strconv"
	"sync"
)

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warn"
	default:
		return "Error"
	}
}

var (
	mu     sync.Mutex
	out    io.Writer
	minLvl = LevelInfo
)

// SetOutput installs w as the sink; nil restores println.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetLevel drops lines below l.
func SetLevel(l Level) {
	mu.Lock()
	minLvl = l
	mu.Unlock()
}

func Debug(a ...any) { logf(LevelDebug, a) }
func Info(a ...any)  { logf(LevelInfo, a) }
func Warn(a ...any)  { logf(LevelWarn, a) }
func Error(a ...any) { logf(LevelError, a) }

func logf(l Level, a []any) {
	mu.Lock()
	defer mu.Unlock()
	if l < minLvl {
		return
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, l.String()...)
	buf = append(buf, ':')
	for _, v := range a {
		buf = append(buf, ' ')
		buf = appendAny(buf, v)
	}
	if out == nil {
		println(string(buf))
		return
	}
	buf = append(buf, '\n')
	_, _ = out.Write(buf)
}

type stringer interface{ String() string }

func appendAny(b []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(b, x...)
	case int:
		return strconv.AppendInt(b, int64(x), 10)
	case int16:
		return strconv.AppendInt(b, int64(x), 10)
	case int32:
		return strconv.AppendInt(b, int64(x), 10)
	case int64:
		return strconv.AppendInt(b, x, 10)
	case uint:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint8:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint16:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint32:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint64:
		return strconv.AppendUint(b, x, 10)
	case bool:
		return strconv.AppendBool(b, x)
	case error:
		return append(b, x.Error()...)
	case stringer:
		return append(b, x.String()...)
	case nil:
		return append(b, "<nil>"...)
	default:
		return append(b, "?"...)
	}
}
