// Package domain contains the core entities of the generation gateway:
// flashcards, decks, card references, distractor sets and the tagged
// request union that the dispatcher routes. It is independent of any
// provider SDK or delivery mechanism.
package domain
