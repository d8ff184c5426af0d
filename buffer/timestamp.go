package buffer

import "time"

// SessionMarker renders the "-- Fri Jul 31 14:05:22 2026 --" (or, for a
// continuation after a scrollback trim, "++... ++") banner a logger
// observer writes to a buffer's backing log when a session starts,
// grounded on the original client's logger::get_timestamp, which wraps
// the same strftime output in "--"/"++" markers depending on whether the
// entry continues a prior log file.
func SessionMarker(t time.Time, continuation bool) string {
	stamp := t.Format("Mon Jan 2 15:04:05 2006")
	if continuation {
		return "++ " + stamp + " ++"
	}
	return "-- " + stamp + " --"
}
