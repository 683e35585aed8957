// Package llm defines the conversational completion contract used as the last
// structured-recognition fallback of the resolution pipeline. Provider
// adapters live in subpackages.
package llm
