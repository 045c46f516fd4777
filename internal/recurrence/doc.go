// Package recurrence implements the reminder recurrence model:
//
//   - Rule: a validated (kind, parameter) pair with saturating clamping
//   - Encode/Decode: the compact "<kind>:<param>" storage form
//   - Next: the pure next-occurrence calculator
//
// Everything here is side-effect free and safe for concurrent use.
package recurrence
