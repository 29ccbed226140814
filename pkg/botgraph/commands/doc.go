// Package commands provides leaf nodes that answer chat commands.
//
// Commands match on the message body after any prefix filter above them has
// stripped the command prefix, so Echo sees "echo hi" whether users typed
// "!echo hi" or the tree has no prefix filter at all. A command that does
// not recognise the body does nothing.
//
// Failures the user should know about are reported as a chat reply in plain
// language ("Could not join room: #x") and not returned as errors; the
// returned error is reserved for the reply itself failing.
package commands
