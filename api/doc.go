// Package api holds the types shared between the orchestrator and the
// surfaces that call it: the error taxonomy and the result wrapper.
package api
