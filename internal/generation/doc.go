// Package generation is the core of the flashcard generation gateway. It
// turns a validated request into provider calls and normalized results.
//
// Key components:
//
//   - CredentialPool: ordered provider credentials with per-run failure tracking
//   - Policy and Classify: capped exponential backoff and the retry/rotate classification
//   - Schema builders: structured-output constraints per action, including the
//     per-request distractor schema
//   - Orchestrator: the retry and credential rotation loop around an Invoker
//   - Normalizers: reconcile loosely shaped provider JSON into canonical decks,
//     flashcards and distractor sets
//   - Chunk and Merge: split distractor batches and fan them back in
//   - Service: validates and dispatches the four actions
//
// Provider SDKs live behind the Invoker interface in the platform packages.
package generation
