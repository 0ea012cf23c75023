/*
Package datanode defines the identity, record, and report value types shared
by the registry, consensus, events, and stats packages.

These types carry no behavior of their own — mutation and invariant
enforcement live in pkg/registry, which is the only package allowed to
construct or mutate a Record in place. Everything here is safe to copy by
value or pass across package boundaries for read-only use.
*/
package datanode
