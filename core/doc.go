// Package core implements the in-process actor runtime used by calbot.
//
// An Actor owns a goroutine and an unbounded FIFO mailbox. Senders never
// block. Every request carries its own single-use reply channel, so a
// response can only ever reach the caller that asked for it.
package core
