package constants

// State version constants for backward compatibility of the state file.
//
// Version History:
//   - Version 0: Legacy format, bookmarks persisted as a flat {"stream": value} object.
//   - Version 1: Current version, bookmarks nested under "bookmarks" next to a "version" key.
//     Datetime bookmarks are always RFC3339 in UTC.

const (
	LatestStateVersion = 1
)

// Used as the current version of the state when the program is running
var LoadedStateVersion = LatestStateVersion
