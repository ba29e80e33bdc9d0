// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	_ "github.com/grantwise-io/grantwise/pkg/core/models"
	_ "github.com/grantwise-io/grantwise/pkg/retention/tasks"
)
