// Package dedupe keeps a short TTL window of gateway event keys so that an
// event replayed after a reconnect is handled only once.
package dedupe
