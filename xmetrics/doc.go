// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package xmetrics provides configurability for Prometheus-based metrics.  The more general go-kit interfaces
are used where possible.

Metrics are described up front with Metric, usually gathered from Module functions exported by the packages
that use them.  NewRegistry preregisters every described metric, and the resulting Registry serves both as a
go-kit provider.Provider for instrumentation and as a prometheus.Gatherer for exposition.
*/
package xmetrics
