package favourites

import "github.com/giannis84/matchday-favourites/internal/models"

// collection is the cached favourites of one user, newest first, unique by match.
type collection struct {
	records []*models.FavouriteRecord
	index   map[models.MatchID]int
	// stale marks a collection that was invalidated but could not be refetched yet.
	stale bool
}

// newCollection keeps the first record seen for every match.
func newCollection(records []*models.FavouriteRecord) *collection {
	c := &collection{
		records: make([]*models.FavouriteRecord, 0, len(records)),
		index:   make(map[models.MatchID]int, len(records)),
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, dup := c.index[rec.MatchID]; dup {
			continue
		}
		c.index[rec.MatchID] = len(c.records)
		c.records = append(c.records, rec)
	}
	return c
}

func (c *collection) has(matchID models.MatchID) bool {
	_, ok := c.index[matchID]
	return ok
}

// insert places rec at position pos (clamped), unless the match is already present.
func (c *collection) insert(pos int, rec *models.FavouriteRecord) {
	if c.has(rec.MatchID) {
		return
	}
	if pos < 0 || pos > len(c.records) {
		pos = len(c.records)
	}
	records := make([]*models.FavouriteRecord, 0, len(c.records)+1)
	records = append(records, c.records[:pos]...)
	records = append(records, rec)
	records = append(records, c.records[pos:]...)
	c.reindex(records)
}

// remove drops the record of matchID and returns it with its former position, or nil, -1.
func (c *collection) remove(matchID models.MatchID) (*models.FavouriteRecord, int) {
	pos, ok := c.index[matchID]
	if !ok {
		return nil, -1
	}
	rec := c.records[pos]
	records := make([]*models.FavouriteRecord, 0, len(c.records)-1)
	records = append(records, c.records[:pos]...)
	records = append(records, c.records[pos+1:]...)
	c.reindex(records)
	return rec, pos
}

func (c *collection) reindex(records []*models.FavouriteRecord) {
	c.records = records
	c.index = make(map[models.MatchID]int, len(records))
	for i, rec := range records {
		c.index[rec.MatchID] = i
	}
}

// snapshot returns deep copies of the records so callers cannot mutate cached state.
func (c *collection) snapshot() []*models.FavouriteRecord {
	out := make([]*models.FavouriteRecord, len(c.records))
	for i, rec := range c.records {
		out[i] = cloneRecord(rec)
	}
	return out
}

func cloneRecord(rec *models.FavouriteRecord) *models.FavouriteRecord {
	copied := *rec
	if rec.Match == nil {
		return &copied
	}
	match := *rec.Match
	if match.Link != nil {
		link := *match.Link
		match.Link = &link
	}
	if match.State != nil {
		state := *match.State
		match.State = &state
	}
	if match.League != nil {
		league := *match.League
		match.League = &league
	}
	if match.Score != nil {
		score := *match.Score
		match.Score = &score
	}
	copied.Match = &match
	return &copied
}
