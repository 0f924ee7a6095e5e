// Package access implements the cross-entity mutation sequences that span
// repositories and accounts: destroy-with-cascade, rename with compensation,
// description changes with catalog fan-out, and maintainer flags. Each
// sequence runs sequentially; when a later step fails after an earlier one
// mutated external state, an explicit compensating action restores a
// consistent view before the original error is propagated.
package access
