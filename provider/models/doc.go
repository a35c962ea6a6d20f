// Package models maps the provider identifiers used in being definitions
// (openRouter, openAI, anthropic, google, local) onto configured backends.
package models
