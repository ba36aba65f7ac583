// Package domain defines the core business entities for docsai.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A window of extracted document text with its embedding
//   - EmbeddingMode: Whether text is embedded as a document or a query
//   - CachedRetrieval: The retrieval result stored per question
//   - PipelineState: The record threaded through question answering
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
