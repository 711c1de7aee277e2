package types

import (
	"github.com/DoyleJ11/leaderboard-backend/internal/board"
	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
	pub "github.com/DoyleJ11/leaderboard-backend/pkg/types"
)

type ClientMessage struct {
	Type string `json:"type"`
}

type ServerMessage struct {
	Type     string        `json:"type"` // "StateSnapshot" | "Error"
	Version  int           `json:"version,omitempty"`
	Snapshot *pub.Snapshot `json:"snapshot,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func SnapshotMessage(snap board.Snapshot) ServerMessage {
	s := NewSnapshot(snap)
	return ServerMessage{Type: pub.MsgStateSnapshot, Version: s.Version, Snapshot: &s}
}

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: pub.MsgError, Error: msg}
}

// NewSnapshot walks the live order and, for each row, pulls scores, offset
// and rank from the ranked order by id. A live player missing from the
// ranked order keeps its live data and gets rank index -1.
func NewSnapshot(snap board.Snapshot) pub.Snapshot {
	byID := engine.IndexByID(snap.Ranked)
	rows := make([]pub.Row, 0, len(snap.Live))
	for _, live := range snap.Live {
		p := live
		rank, ok := byID[live.ID]
		if ok {
			p = snap.Ranked[rank]
		} else {
			rank = -1
		}
		rows = append(rows, pub.Row{
			ID:            p.ID,
			DisplayName:   p.DisplayName,
			Avatar:        p.Avatar,
			RankIndex:     rank,
			PreviousScore: p.PreviousScore,
			CurrentScore:  p.CurrentScore,
			DisplayOffset: p.DisplayOffset,
		})
	}

	return pub.Snapshot{
		Version: snap.Version,
		State:   snap.State.String(),
		Rows:    rows,
		Ranking: engine.IDs(snap.Ranked),
	}
}
