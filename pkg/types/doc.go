// Package types defines the shared data model for the local search
// engine: documents, search modes, ranked results, and the domain
// error taxonomy.
//
// Exactly one of SearchResult.FTSScore/SemanticScore is set for
// single-mode searches; hybrid searches may set both. A nil score means
// the corresponding source did not return the document, which is
// distinct from a zero score.
package types
