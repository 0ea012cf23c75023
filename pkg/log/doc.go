/*
Package log provides structured logging for the registry core using
zerolog.

A single global Logger is configured once via Init and shared by every
package. Context loggers (WithDatanodeID, WithPipelineID, WithTerm) wrap
it with a typed field so heartbeat, health-scanner, and consensus logs
are each filterable without string parsing.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.WithDatanodeID(id.String()).Info().Str("event", "heartbeat").Msg("")
*/
package log
