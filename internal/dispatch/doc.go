// Package dispatch executes resolved intents against the wallet, market,
// oracle and user-store collaborators and renders exactly one reply per call.
//
// Every command checks its minimum arity before any collaborator is touched.
// Collaborator failures are rendered with intent.ErrorMarker; the dispatcher
// itself never returns an error.
package dispatch
