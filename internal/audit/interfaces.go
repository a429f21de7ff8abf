package audit

import "time"

// Clock abstracts time.Now so handlers and limiters are testable.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints audit and request identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
