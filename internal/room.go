package internal

// Methods on Room assume the caller holds Room.Mu unless noted.

func (r *Room) HasPlayer(sessionID string) bool {
	for _, id := range r.Players {
		if id == sessionID {
			return true
		}
	}
	return false
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// NonDrawerCount is the number of players eligible to guess this turn.
func (r *Room) NonDrawerCount() int {
	n := len(r.Players)
	if r.Game.CurrentDrawer != "" && r.HasPlayer(r.Game.CurrentDrawer) {
		n--
	}
	return n
}

// Clone deep-copies the room record so callers can read it without holding
// the lock. The caller must hold at least a read lock while cloning.
func (r *Room) Clone() *Room {
	c := &Room{
		ID:         r.ID,
		Name:       r.Name,
		Host:       r.Host,
		Status:     r.Status,
		MaxPlayers: r.MaxPlayers,
		Settings:   r.Settings,
		CreatedAt:  r.CreatedAt,
		Game:       r.Game.clone(),
	}
	c.Players = append([]string(nil), r.Players...)
	return c
}

func (g GameState) clone() GameState {
	c := g
	c.DrawerOrder = append([]string(nil), g.DrawerOrder...)
	c.WordOptions = append([]string(nil), g.WordOptions...)
	c.WordsUsed = append([]string(nil), g.WordsUsed...)
	c.PlayersGuessed = append([]string(nil), g.PlayersGuessed...)
	if g.Scores != nil {
		c.Scores = make(map[string]int, len(g.Scores))
		for id, s := range g.Scores {
			c.Scores[id] = s
		}
	}
	return c
}

// CopyScores snapshots the score table for broadcast payloads.
func (g *GameState) CopyScores() map[string]int {
	scores := make(map[string]int, len(g.Scores))
	for id, s := range g.Scores {
		scores[id] = s
	}
	return scores
}
