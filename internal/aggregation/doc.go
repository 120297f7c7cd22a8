// Package aggregation combines cleaned per-site datasets into one
// site-tagged frame and answers the cross-site comparison queries: summary
// statistics, site and date filtering, daily mean series.
package aggregation
