// Package ui renders command lifecycle events for operators watching the tool run.
package ui
