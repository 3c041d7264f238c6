// Package store persists the assistant's conversation history in a
// local SQLite database. It records every inbound and outbound message
// so scheduled jobs and the assistant loop can build conversation
// context, and exposes a probe for the health checker.
package store
