// Package depgraph owns the dependency edges between tasks and answers
// whether the graph is currently acyclic and well-formed. Validation
// verdicts are cached by a content fingerprint of the edge set, so repeated
// validation of an unchanged graph costs a hash, not a traversal.
package depgraph
