// Package repositories implements SQLite persistence for client-local state.
//
// The player persists exactly one value: the bearer token. It lives in a generic key/value table so the
// schema does not change if more client-local settings are added.
//
// Key Implementations:
//   - [KeyValueRepository] : Get/Set/Delete over the kv_store table, [shared.ErrNotFound] for absent keys
//   - [TokenRepository] : the token persistence contract under the fixed [TokenKey]
package repositories
