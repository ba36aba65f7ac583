// Package connectors feeds documents from external sources into the ingest
// pipeline. The filesystem connector watches a local directory for PDFs.
package connectors
