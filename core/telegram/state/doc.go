// Package state is the per-chat flow cache: at most one in-progress
// conversational flow per chat, held in memory only.
//
// Flows are immutable tagged variants. A controller advances a chat by
// putting a new value, never by mutating the stored one.
package state
