// Package executor drives one conversation turn: it calls the model, detects
// tool-call directives, dispatches them, folds the results back into the context
// and decides when to stop.
//
// Design decisions:
//   - Command pattern: RunCommand carries everything a turn needs and validates
//     itself with errors.Join
//   - Bounded loop: at most MaxIterations model calls per turn, no recursion
//   - Write-through transcript: every user, assistant and tool turn is persisted
//     the moment it joins the working history
//   - Failure isolation: tool failures are rendered into tool turns; only input,
//     configuration, provider and storage failures end a turn early
//   - Repeat breaker: the same single tool call issued three times in a row ends
//     the turn with a clarification request instead of another model call
//
// Key components:
//
//   - Executor: the Run contract
//   - RunCommand: conversation id, being, message and loop limits
//   - Local: in-process implementation over a store, a dispatcher, provider
//     resolution and the tool catalog
//   - Result: final text plus what happened on the way there
//
// Example usage:
//
//	exec := executor.NewLocal(store, dispatcher, providers, registry)
//	cmd, err := executor.NewRunCommand("hoot", being, "What's the weather in Montreal?")
//	if err != nil {
//	    return err
//	}
//	res, err := exec.Run(ctx, cmd.WithHook(events.LogHook(nil)))
package executor
