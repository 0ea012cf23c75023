/*
Package opstatestore persists an audit trail of operational-state
transitions (spec.md §4.4's administrator-facing SetOperationalState
calls) to a local bbolt database, so an SCM restart doesn't lose the
history of who decommissioned what and when. It does not replace
Registry's in-memory state — it is an append-only log consulted by the
CLI's history command.
*/
package opstatestore
