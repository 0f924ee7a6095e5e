// Package utils hosts shared CLI infrastructure: configuration loading and logger construction.
package utils
