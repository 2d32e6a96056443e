package main

import "errors"

// ErrNotFound marks a missing account, tweet or analysis result. Callers
// should not retry.
var ErrNotFound = errors.New("not found")

// ErrStorage marks a persistence failure. Tweet upserts and ledger inserts
// are idempotent, so retrying the failed scan step is safe.
var ErrStorage = errors.New("storage failure")
