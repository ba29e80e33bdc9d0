// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package version

// Version is the version of grantwise. It is set during build time via
// -ldflags.
var Version = "v0.1.0-dev"
