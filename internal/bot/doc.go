// Package bot is the application context: it receives platform events and
// routes them to the grant manager, the shadow store and the auditor.
//
// Messages in the watched log channel, and every bot-authored message, are
// captured on create; edits in the watched channel replace the stored copy.
// Deletions are handed to the auditor. The retention sweeper starts on the
// first ready event.
//
// Slash commands are looked up in a table fixed at construction. Handler
// errors and panics are logged and answered with a generic ephemeral reply.
package bot
