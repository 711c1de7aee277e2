// Package roster loads the initial player set for a board.
package roster

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
)

var ErrMalformed = errors.New("malformed roster")

type Source interface {
	Load(ctx context.Context) ([]engine.Player, error)
}

type FileSource struct {
	Path string
}

func (f FileSource) Load(_ context.Context) ([]engine.Player, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", f.Path, err)
	}
	return Parse(data)
}

// Parse accepts either a bare JSON array of players or an object with a
// "players" array. Each entry needs an id ("userID" or "id"); "displayName",
// "picture"/"avatar" and a numeric "score" are optional.
func Parse(data []byte) ([]engine.Player, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}

	doc := gjson.ParseBytes(data)
	if doc.IsObject() {
		doc = doc.Get("players")
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of players", ErrMalformed)
	}

	var players []engine.Player
	var parseErr error
	doc.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			parseErr = fmt.Errorf("%w: entry %d is not an object", ErrMalformed, len(players))
			return false
		}
		score := v.Get("score")
		if score.Exists() && score.Type != gjson.Number {
			parseErr = fmt.Errorf("%w: entry %d has a non-numeric score", ErrMalformed, len(players))
			return false
		}
		players = append(players, engine.Player{
			ID:           first(v, "userID", "id").String(),
			DisplayName:  v.Get("displayName").String(),
			Avatar:       first(v, "picture", "avatar").String(),
			CurrentScore: score.Int(),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if err := engine.ValidateRoster(players); err != nil {
		return nil, err
	}
	return engine.NewRoster(players), nil
}

func first(v gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
