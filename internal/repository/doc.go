// Package repository owns bare repository existence, naming rules, permission
// normalization, branch-protection metadata, and the authoritative per-repository
// user list derived from OS group membership.
package repository
