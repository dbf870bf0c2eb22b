// SPDX-License-Identifier: MPL-2.0

// Package issue carries user-facing error context for the fetchunroll CLI:
// ActionableError records the failed operation with suggestions, and the
// issue registry holds a Markdown remediation guide per failure class,
// rendered with glamour in verbose mode.
package issue
