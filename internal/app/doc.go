// Package app contains the core application logic. It loads and validates
// program documents, plans them, and runs live or replayed sessions,
// decoupled from any specific entrypoint like a CLI or server.
package app
