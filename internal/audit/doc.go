// Package audit keeps the append-only log of blocked compliance attempts.
//
// Each Violation is written to the shared key-value store under
// "<prefix><epoch-ms>" (by default "compliance_block_<epoch-ms>") with a
// one year TTL. Ids are monotonic: two violations in the same millisecond
// get consecutive ids, so keys never collide within a process.
//
// Writes are best effort and never block a response. Record enqueues on a
// bounded buffer drained by a single worker; when the buffer is full the
// violation is dropped and counted. Failed writes are retried a few times,
// then logged and counted.
package audit
