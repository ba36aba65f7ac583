package driving

import "context"

// IngestService adds documents to the knowledge base.
type IngestService interface {
	// Ingest extracts, chunks, embeds and stores a PDF.
	// It returns the number of chunks stored; zero means nothing usable was found.
	Ingest(ctx context.Context, data []byte, source string) (int, error)
}
