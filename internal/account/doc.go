// Package account manages hosted user accounts and the derived artifacts
// that expose granted repositories to each user: the symlink farm under the
// user's home directory and the generated per-user catalog file consumed by
// the repository browser. OS group membership is the authoritative access
// record; both artifacts are recomputed from it after every mutation.
package account
