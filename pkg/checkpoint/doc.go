// Package checkpoint saves and resumes collection progress.
//
// A checkpoint stores the search being run, the records accepted so far
// and the number of passes made. The Recorder writes it after every pass
// that found something new, so an interrupted run can be resumed with the
// collector seeded from the saved records.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/xscraper/checkpoints/
//   - macOS: ~/Library/Application Support/xscraper/checkpoints/
//   - Windows: %APPDATA%/xscraper/checkpoints/
//
// Files are written atomically and carry a version number.
package checkpoint
