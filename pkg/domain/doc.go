// Package domain holds the core value types shared by every layer of the
// engine: the per-conversation register, dispatch events and the sentinel
// errors of the dispatch cycle.
package domain
