// Package batch runs one tool action over several calendar entries.
//
// Tools that act on entries (toggle, postpone, delete) accept either one
// entry id or a list. Each entry succeeds or fails on its own and the tool
// answers with a Summary.
package batch
