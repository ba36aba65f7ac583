// Package normalisers holds the document text extractors. Each subpackage
// turns one document format into plain text for chunking.
package normalisers
