// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package clients

import "github.com/uptrace/bun"

// DB provides the connection to the grantwise database.
var DB *bun.DB

// SetDB sets the database connection to be used by the workers.
func SetDB(database *bun.DB) {
	DB = database
}
