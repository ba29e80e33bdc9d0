// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grantwise-io/grantwise/pkg/metrics"
)

// removedRecordsDesc is the descriptor of the metric reporting the number of
// records removed per retention job during the last run.
var removedRecordsDesc = prometheus.NewDesc(
	prometheus.BuildFQName(metrics.Namespace, "", "retention_removed_records"),
	"Number of records removed per retention job",
	[]string{"job"},
	nil,
)

func init() {
	metrics.DefaultCollector.AddDesc(removedRecordsDesc)
}
