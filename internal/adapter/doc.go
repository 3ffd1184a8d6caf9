// Package adapter normalizes source-specific raw records into
// model.CanonicalEvent.
//
// The set of adapters is closed: one variant per model.SourceKind, obtained
// through For. Adapters are pure: no I/O and no shared state. A record that
// lacks a title or a parseable start date fails with *NormalizationError so the
// caller can drop that single record and keep the rest of the batch.
//
// Field contracts per source:
//
//	WHO    title / date / endDate          Health            High    Global
//	UN     name / date / endDate           keyword(theme)    Medium  Global
//	ILO    eventName / startDate / endDate Safety            High    Global
//	UAE    title / date / end_date         category|keyword  High    National
//	IRENA  title / start / end             Energy            Medium  Global
package adapter
