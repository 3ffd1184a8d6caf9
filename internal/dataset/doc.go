// Package dataset holds the event set served to the presentation layer.
//
// A Holder always has a dataset: it starts from fallback data and is only
// replaced by a successful sync. Failed runs leave the current dataset in
// place and are visible through LastRun.
package dataset
