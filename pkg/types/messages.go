package types

// Client -> Server
// Resync: {} asks for the current snapshot right away.

// Server -> Client
// StateSnapshot:
//   version: number
//   snapshot: Snapshot
//
// Error:
//   error: string

const (
	MsgResync        = "Resync"
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)
