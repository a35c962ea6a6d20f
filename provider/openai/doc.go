/*
Package openai implements provider.Provider for OpenAI-compatible chat completion
endpoints. The same backend serves OpenAI itself and OpenRouter, which exposes the
OpenAI wire format under its own base URL.

# Configuration

	p := openai.New(openai.Config{
		Name:   "openAI",
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  openai.DefaultModel,
	})

	router := openai.NewOpenRouter(os.Getenv("OPENROUTER_API_KEY"), "")

Extra option.RequestOption values (timeouts, a test server base URL) can be passed
after the Config and are applied last.

# Message Mapping

The system prompt becomes the leading system message. The transcript built by
provider.Transcript is sent as user and assistant messages; tool output travels as
user text because tool calls are expressed in plain-text directives.

Requests use N=1 and a low temperature. An answer with no choices or only whitespace
yields provider.ErrEmptyResponse.
*/
package openai
