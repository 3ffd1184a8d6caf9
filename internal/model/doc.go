// Package model defines shared data types used across the calendar sync pipeline.
//
// Conventions:
//   - Dates: time.Time truncated to midnight UTC (calendar dates, no time of day)
//   - Enumerations: string types whose values are the labels shown to users
//   - Month: always derived from Start, never taken from upstream payloads
package model
