// Package state keeps per-user conversation sessions for multi-step prompts.
// Sessions live either in process memory or in Redis; both managers dispatch
// to the handlers registered with RegisterHandler.
package state
