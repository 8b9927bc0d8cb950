package logger

import "github.com/rs/zerolog"

// RestyLogger 把 resty 内部日志转发到 zerolog。
// resty 的错误在调用方会以返回值的形式再次处理，所以这里只记为 debug。
type RestyLogger struct {
	l zerolog.Logger
}

// ForResty 返回一个带 component 字段的 resty.Logger 实现。
func ForResty(component string) *RestyLogger {
	return &RestyLogger{l: WithComponent(component)}
}

func (r *RestyLogger) Errorf(format string, v ...interface{}) {
	r.l.Debug().Str("resty", "error").Msgf(format, v...)
}

func (r *RestyLogger) Warnf(format string, v ...interface{}) {
	r.l.Debug().Str("resty", "warn").Msgf(format, v...)
}

func (r *RestyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug().Msgf(format, v...)
}
