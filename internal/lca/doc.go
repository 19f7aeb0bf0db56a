// Package lca fits latent class models to categorical survey responses.
//
// A latent class model is a finite mixture of independent categorical
// distributions: each respondent belongs to one of n unobserved classes,
// and within a class every question is answered independently according
// to that class's category probabilities.
//
// The package exposes three operations:
//
//   - Fit runs expectation-maximization for a fixed class count and returns
//     a Model. Initial parameters come from a seeded source, so the same
//     Matrix, count, and seed always produce the same Model.
//   - Selector.Select fits one model per count in a range, scores each with
//     the Bayesian Information Criterion, and returns the count with the
//     lowest score. Counts are fitted concurrently.
//   - Assign refits the chosen count and labels every respondent with its
//     most probable class.
//
// Nothing in this package logs or touches the filesystem. Callers own
// loading, persistence and reporting.
//
// Complexity:
//
//   - Fit: O(I × N × n × Q) time, O(N × n + n × Q × K) memory, where I is
//     the iteration count, N respondents, n classes, Q questions and K the
//     largest category count.
//   - Select: one Fit per candidate count.
//
// Errors:
//
//   - ErrInvalidRange: the requested count range falls outside Bounds.
//   - ErrConvergence: a class lost all of its mass during fitting.
//   - ErrInvalidMatrix: the response matrix is empty, ragged, or has fewer
//     rows than classes.
//   - ErrUnknownCategory: a matrix scored against a Model contains a code
//     the Model never saw.
package lca
