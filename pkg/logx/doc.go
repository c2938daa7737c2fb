// Package logx configures homework-bot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured (one record per line)
//   - Optional Telegram sink (min-level + rate limiting)
package logx
