/*
Package log provides structured logging for Meerkat using zerolog.

The log package wraps zerolog to provide JSON or console-formatted logging
with context loggers scoped to a service actor, a reactive, or a transaction,
plus the handful of package-level helpers used outside any actor (driver
startup, CLI errors).

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	svcLog := log.WithService("main")
	svcLog.Info().Msg("service actor started")

	txLog := log.WithTx(tx.String())
	txLog.Debug().Str("reactive", "z").Msg("read satisfied")

# Context Loggers

  - WithService(service): all logs for one service actor
  - WithReactive(service, name): logs scoped to a single reactive cell
  - WithTx(txID): logs scoped to one transaction's lifetime

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
