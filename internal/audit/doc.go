// Package audit reconstructs deleted log-channel messages for the operator.
//
// When a message in the watched channel is deleted, the Auditor looks up its
// shadow copy, rewrites role mentions (<@&id>) to @Name using the guild's
// current roles, renders embeds as text (descriptions cut at 500 characters,
// at most 5 fields listed) and DMs the result to the operator. Without a
// stored copy it falls back to whatever the gateway still had cached.
//
// RewriteRoleRefs, RenderEmbeds, Reconstruct and AlertText are pure and can
// be tested without a store or platform.
package audit
