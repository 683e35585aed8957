// Package agent resolves a chat message into either a typed command or a
// textual reply. Recognizer stages run in a fixed order and the first one
// that produces a result wins; collaborator failures degrade to the next
// stage instead of surfacing as errors.
package agent
