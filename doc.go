/*
Package hoot runs a persona-driven assistant that can call tools while it
answers.

A Runtime turns one user message into a reply. The model may ask for tools by
writing directives into its text:

	FUNCTION: weather PARAMS: {'location': 'Paris'}

Each directive is parsed, dispatched against the tool registry and the result
is folded back into the conversation before the model is asked again. Several
directives in one reply run concurrently. The loop is bounded and stops early
when the model keeps asking for the same call.

# Basic Usage

	b, err := being.Load("being.yaml")
	if err != nil {
		// Handle error
	}

	tools := tool.NewRegistry()
	builtin.Register(tools, http.DefaultClient)

	rt, err := hoot.New(
		hoot.WithBeing(b),
		hoot.WithTools(tools),
		hoot.WithStore(memory.New()),
		hoot.WithProviders(models.Default(settings)),
	)
	if err != nil {
		// Handle error
	}
	defer rt.Close()

	reply, err := rt.Chat(ctx, "Roll 3 dice")

# Architecture

  - being: the persona file and the system prompt built from it
  - tool: function definitions, reflected JSON schemas and the registry
  - toolcall: the directive scanner and call signatures
  - internal/dispatch: single and batched tool execution
  - internal/executor: the iteration loop
  - provider: model backends (OpenAI, OpenRouter, Anthropic, Gemini, Ollama)
  - store: transcript persistence (memory, bbolt)
  - retrieval: background context (bleve)
  - events: observation hooks, published locally or over NATS

# Errors

Failures returned by Respond are *api.Error values. Use api.IsKind to tell
input, configuration, provider and storage failures apart. Tool failures are
never returned: they become tool results the model can react to.

# Thread Safety

A Runtime can serve many conversations concurrently. Turns of the same
conversation should not overlap.
*/
package hoot
