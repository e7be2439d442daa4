// Package frontend provides a minimal HTML view over chatpg conversations.
//
// Message content is markdown; it is rendered with goldmark and passed
// through a bluemonday UGC policy before reaching the browser, since model
// output is untrusted input.
package frontend
