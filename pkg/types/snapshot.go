package types

// Row is one leaderboard line as a renderer draws it. Rows are listed in
// live (stable) order; RankIndex says where the row belongs and
// DisplayOffset is the translation that puts it there.
//
// A renderer animates the score from PreviousScore to CurrentScore and the
// row transform to DisplayOffset.
type Row struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Avatar        string `json:"avatar,omitempty"`
	RankIndex     int    `json:"rank_index"` // zero-based
	PreviousScore int64  `json:"previous_score"`
	CurrentScore  int64  `json:"current_score"`
	DisplayOffset int    `json:"display_offset"`
}

type Snapshot struct {
	Version int      `json:"version"`
	State   string   `json:"state"` // "idle" | "running" | "stopped"
	Rows    []Row    `json:"rows"`
	Ranking []string `json:"ranking"` // ids, highest score first
}
