package ids

import "github.com/segmentio/ksuid"

// New returns a sortable unique id for a record.
func New() string {
	return ksuid.New().String()
}
