// Package logx is a small structured-logging facade over zerolog.
//
// This repo uses a thin wrapper (logx.Logger) instead of raw zerolog to keep:
//   - live reconfiguration: loggers created from Service stay valid across
//     Apply() calls (console/file/Telegram sinks can change at runtime)
//   - a stable call-site API (fields as functional options)
//   - a rate-limited, best-effort Telegram sink for operational alerts
package logx
