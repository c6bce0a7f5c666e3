// Package document defines the raw, format-agnostic program document (the
// input contract produced by loaders) along with the Loader interface used to
// read it from JSON, YAML or HCL sources.
//
// A Document is deliberately loose: every field is optional and triggers and
// durations are plain tagged structs. Turning it into a program.Program, and
// reporting everything wrong with it, is the job of the validate package.
package document
