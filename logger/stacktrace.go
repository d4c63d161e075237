package logger

import (
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

const maxStackDepth = 32

// CaptureStacktrace 从 skip 帧开始记录最多 depth 帧，depth <= 0 时取 32
// 每帧两行：函数名，然后是缩进的 文件:行号
func CaptureStacktrace(skip, depth int) string {
	if depth <= 0 || depth > maxStackDepth {
		depth = maxStackDepth
	}

	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}

// stacktraceEnabled level 是否达到配置的堆栈阈值
func stacktraceEnabled(level zapcore.Level, cfg ManagerConfig) bool {
	if !cfg.EnableStacktrace {
		return false
	}
	threshold, err := zapcore.ParseLevel(cfg.StacktraceLevel)
	if err != nil {
		threshold = zapcore.ErrorLevel
	}
	return level >= threshold
}
