// Package redact holds the secret heuristics shared by the secrets reviewer
// and the external-command reviewer.
//
// Find names the secret shapes present in a line (API keys, JWTs, private
// keys, cloud and SaaS tokens, credentials embedded in connection strings).
// Secrets and Content scrub text before it is handed to a process outside
// revgate; files whose paths match configured globs are withheld entirely.
package redact
