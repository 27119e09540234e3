// Package ir provides the block data model shared by every other package.
//
// It holds type definitions and their pure helpers only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - NO float attribute values - use Int
//   - Blocks published by the store are immutable; identity is the change signal
//   - Canonical JSON (RFC 8785 + NFC) is the only input to content hashes
package ir
