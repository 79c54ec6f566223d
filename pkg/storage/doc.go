// Package storage writes scrape results to disk.
//
// Results are CSV files with the columns author, timestamp and text,
// optionally prefixed with a UTF-8 byte order mark so spreadsheet tools
// pick the right encoding. File names follow
// <prefix>_<mode>_<query>.csv where every non-alphanumeric rune of the
// query becomes an underscore. All writes go through a temporary file and
// a rename so an interrupted run never leaves a truncated file behind.
package storage
