// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package xviper provides customizations on use of viper for configuration loading.

Configuration is assembled from option functions, typically StdOptions plus any defaults, and
decoded with Unmarshal, which understands durations and coerces string values arriving from
environment variables.
*/
package xviper
