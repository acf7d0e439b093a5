package core

import "github.com/jonboulle/clockwork"

// ConsoleDeps captures the collaborators of a console.
type ConsoleDeps struct {
	Document  Document
	Authority Authority
	// Focus answers whether a control is the current edit target. Nil means
	// nothing is ever focused.
	Focus FocusFunc
	Clock clockwork.Clock
	// Post schedules a callback on the console's event loop. Nil runs
	// callbacks where they fire.
	Post func(func())
	// Mirror is shared when several consoles render the same stream. Nil
	// gives the console its own.
	Mirror *Mirror
}
