// Package langchain adapts langchaingo models to provider.Provider. It backs the
// Google (Gemini) and local (Ollama) providers, and any other llms.Model a caller
// wants to plug in.
package langchain
