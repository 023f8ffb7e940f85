// Package ui renders the user-facing lines of a fetch run with lipgloss.
package ui
