// Package tapintercom provides a pull-based extraction connector for the
// Intercom customer messaging platform. It syncs conversations, contacts,
// tickets, help center content, and workspace resources into a stream of
// schema-tagged JSON messages suitable for downstream loaders.
//
// # Architecture
//
// The tap is organized around a small set of cooperating layers:
//
// 1. Resilient client (pkg/clients): every API call flows through a token
// bucket rate limiter, a circuit breaker, and an exponential-backoff retry
// policy, with typed error classification per HTTP status.
//
// 2. Declarative catalog (pkg/tap/streams): each stream is a Definition
// naming its endpoint, record path, keys, replication cursor, and parent.
// The generic engine in pkg/tap/base drives pagination, incremental
// filtering, bookmark advancement, and parent-child fan-out.
//
// 3. Content export (pkg/tap/export): asynchronous export jobs are
// submitted, polled to completion, downloaded as zip archives, and their
// staged CSV files replayed as records.
//
// 4. Message pipeline (internal/pipeline): schemas are announced before
// any record, state is checkpointed after every stream, and the scratch
// directory never survives a run.
//
// # Quick Start
//
//	cfg, err := config.Load("config.yaml")
//	transport, err := auth.NewTransport(ctx, cfg.Credentials)
//	client := clients.NewClient(cfg, transport)
//	runner, err := pipeline.New(cfg, client, state.NewStore(), os.Stdout)
//	err = runner.Run(ctx)
//
// The cmd/tap-intercom CLI wraps this flow with config loading, state
// persistence, and signal handling.
package tapintercom
