// Package gemini provides an implementation of the generation.Invoker interface
// backed by Google's Gemini API.
//
// This package is an infrastructure adapter in the hexagonal architecture: it
// translates a prompt, a JSON Schema and an optional PDF attachment into a
// single GenerateContent call and maps the outcome back into the generation
// package's error vocabulary.
//
// Key components:
//
// 1. Invoker:
//   - Implements generation.Invoker
//   - Keeps one genai client per credential
//   - Issues exactly one request per Invoke; retries belong to the orchestrator
//
// 2. Schema translation:
//   - Converts generation.Schema definitions into genai.Schema values
//
// 3. Error mapping:
//   - HTTP failures become *generation.ProviderError carrying the status code
//   - Safety blocks become generation.ErrContentBlocked
package gemini
