// Package scheduler tracks future publish-time intents independently of the
// job store. Rows become ready when their scheduled time passes, are handed
// to the publish path in bounded batches, and carry their own retry ledger
// capped at a configured maximum.
package scheduler
