package domain

import "time"

// ResourcePokerSession is the resource recorded for every poker command.
const ResourcePokerSession = "poker_session"

// AuditLog represents one applied command.
type AuditLog struct {
	ID         string
	TeamID     string
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
