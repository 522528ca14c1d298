// Package storage provides optional, best-effort persistence of the
// dispatch history ledger. The in-memory ledger stays authoritative;
// a store only mirrors entries for post-mortem inspection.
package storage
