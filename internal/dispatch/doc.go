// Package dispatch executes tool calls against a tool registry.
//
// Dispatching never fails: an unknown tool, bad parameters, an error returned
// by the tool or a panic inside it all become a Result whose Text explains
// what went wrong, so the model can read it and adapt. Batches run
// concurrently and their results keep the order of the calls.
package dispatch
