// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TextExtractor: Turns uploaded document bytes into plain text
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - LLMService: Generates an answer from an assembled prompt
//   - VectorStore: Persists chunks and finds the nearest ones to a vector
//
// # Optional Interfaces
//
//   - QueryCache: Memoises retrieval results per question. A cache that
//     always misses is a valid implementation.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
