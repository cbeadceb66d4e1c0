// Package accounts implements credential-backed account management with
// per-request session revalidation.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field (unverified, active, blocked)
//     persisted via Bun. New registrations start unverified; only an admin
//     action moves an account to active or blocked, and deletion is permanent.
//   - BulkOperator applies admin lifecycle transitions (block, unblock,
//     delete, delete-all-unverified) to sets of accounts in one transaction.
//
// Sessions:
//   - SessionIssuer signs JWT session tokens bound to an account id. Tokens
//     issued with remember=true persist across client restarts and slide
//     their expiry window forward on use, up to a configurable absolute cap.
//   - Revoked tokens land in a denylist so a revoked session fails validation
//     even before its signed expiry.
//
// Revalidation:
//   - RevalidationGuard re-reads the backing account's status from the store
//     on every guarded request. A session whose account was blocked or
//     deleted is revoked on the very next request, never later. Login,
//     registration, and static-asset paths are exempt so a signed-out user
//     can always reach the forms needed to re-authenticate.
package accounts
