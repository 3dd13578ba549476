package db

import (
	"fmt"

	"github.com/ValentinKolb/propdb/lib/host"
)

// FormatElements returns the human readable dump of d: a header line followed by
// one line per entry in insertion order.
func FormatElements(d *Database) []string {
	entries := d.Entries()

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("[Database]: %s (size: %d)", d.Name(), len(entries)))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- [%s: %s]", e.Key, e.Value))
	}
	return lines
}

// PrintElements sends the dump of d to recipient. Sink errors are logged, never returned.
func PrintElements(d *Database, recipient string, sink host.IMessageSink) {
	if sink == nil {
		Logger.Warningf("no message sink to print database '%s' to", d.Name())
		return
	}
	for _, line := range FormatElements(d) {
		if err := sink.SendLine(recipient, line); err != nil {
			Logger.Warningf("printing database '%s' to '%s' failed: %v", d.Name(), recipient, err)
			return
		}
	}
}
