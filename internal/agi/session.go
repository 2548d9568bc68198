package agi

// Session is one in-call scripting session. Command handlers receive this
// interface, never the socket, so tests can substitute a fake.
//
// Env keys are the AGI environment variables without their "agi_" prefix
// (e.g. "uniqueid", "callerid", "queue"). Args are the query parameters of
// the requested script.
type Session interface {
	Env(key string) string
	Arg(key string) string

	SetVariable(name, value string) error
	StreamFile(name string) error
	Wait(seconds int) error
	SetPriority(priority int) error
	// Finish ends the session. Exactly one Finish per command.
	Finish() error
}
