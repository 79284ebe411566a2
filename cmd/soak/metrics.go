// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/xmidt-org/collections/xmetrics"

// RejectedConnectionsCounter counts HTTP connections closed by the connection limiter
const RejectedConnectionsCounter = "rejected_connections_total"

// Metrics is the soak module function for xmetrics
func Metrics() []xmetrics.Metric {
	return []xmetrics.Metric{
		{
			Name: RejectedConnectionsCounter,
			Type: xmetrics.CounterType,
			Help: "The total number of HTTP connections rejected because too many were open",
		},
	}
}
