package domain

import "time"

// Action is the kind of audited operation.
type Action string

const (
	ActionInsert         Action = "INSERT"
	ActionUpdate         Action = "UPDATE"
	ActionDelete         Action = "DELETE"
	ActionLogin          Action = "LOGIN"
	ActionLogout         Action = "LOGOUT"
	ActionChangePassword Action = "CHANGE_PASSWORD"
	ActionEnable         Action = "ENABLE"
	ActionDisable        Action = "DISABLE"
)

// Event is one immutable audit record: who did what to which row, with the
// serialized before/after state. Once written it is never updated or deleted by
// the application.
type Event struct {
	ID          string
	UserID      string
	UserEmail   string
	UserName    string
	TableName   string
	RecordID    string
	Action      Action
	OldValues   string
	NewValues   string
	IPAddress   string
	UserAgent   string
	Description string
	CreatedAt   time.Time
}
