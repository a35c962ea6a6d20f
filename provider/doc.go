// Package provider is the abstraction layer between the conversation loop and the
// language-model backends (OpenRouter, OpenAI, Anthropic, Google, a local Ollama
// server). Every backend exposes the same single-shot text generation contract so the
// iteration controller never has to know which vendor produced a reply.
//
// Design decisions:
//   - Text in, text out: a backend receives system instructions, prior turns and the
//     current message and returns plain text. Tool use is expressed inside that text
//     as FUNCTION/PARAMS directives, never through vendor tool-calling APIs.
//   - Uniform transcript: Transcript maps stored turns onto the two roles every vendor
//     understands (user and assistant) so the backends only differ in wire format.
//   - Explicit failures: empty credentials and empty completions surface as errors the
//     caller can classify with errors.Is.
//
// Key concepts:
//   - Provider: interface implemented by each backend package
//   - CompletionParams: one generation request
//   - Entry: a normalized transcript line
//
// Example usage:
//
//	p := openai.New(openai.Config{Name: "openAI", APIKey: key, Model: "gpt-4o-mini"})
//	text, err := p.Generate(ctx, provider.CompletionParams{
//	    RunID:        uuid.New(),
//	    Instructions: "You are Hoot, a helpful owl.",
//	    Message:      "What's the weather in Montreal?",
//	    History:      history,
//	})
package provider
