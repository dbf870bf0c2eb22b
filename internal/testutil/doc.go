// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include in-memory archive construction (TarGz, Tar, Gzip),
// file assertions (MustWriteFile, ReadFile, ListFiles) and container gating
// for integration tests (ContainersAvailable, ContainerSemaphore).
package testutil
