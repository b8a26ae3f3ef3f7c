package models

// Reminder is one curriculum entry, looked up by (phase, day).
// The pair is intended to be unique but the schema does not enforce it;
// readers take the first match.
type Reminder struct {
	ID       int64
	Phase    int
	Day      int
	Focus    string
	Resource string
	Practice string
}
