package srcom

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Leaderboard is the response shape of a leaderboard lookup with the
// players, category, and level embeds requested.
type Leaderboard struct {
	Data LeaderboardData `json:"data"`
}

// LeaderboardData holds the ranked runs plus the requested embeds.
type LeaderboardData struct {
	Runs     []PlacedRun   `json:"runs"`
	Players  PlayersEmbed  `json:"players"`
	Category CategoryEmbed `json:"category"`
	Level    LevelEmbed    `json:"level"`
}

// PlacedRun is one leaderboard entry: a run with its placement.
type PlacedRun struct {
	Place int `json:"place"`
	Run   Run `json:"run"`
}

// Run is the run object within a leaderboard entry.
type Run struct {
	ID      string      `json:"id"`
	Weblink string      `json:"weblink"`
	Date    string      `json:"date"`
	Times   RunTimes    `json:"times"`
	Players []RunPlayer `json:"players"`
}

// RunTimes carries the primary time in seconds. A pointer distinguishes a
// genuinely absent time from zero; a missing time never counts as a record.
type RunTimes struct {
	PrimarySeconds *float64 `json:"primary_t"`
}

// RunPlayer references either a registered user (rel "user", resolved via the
// players embed) or an unregistered guest (rel "guest", name inline).
type RunPlayer struct {
	Rel  string `json:"rel"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayersEmbed resolves user ids to display names and profile links.
type PlayersEmbed struct {
	Data []Player `json:"data"`
}

// Player is one resolved user from the players embed.
type Player struct {
	ID      string      `json:"id"`
	Weblink string      `json:"weblink"`
	Names   PlayerNames `json:"names"`
	Name    string      `json:"name"`
}

// PlayerNames holds the international display name.
type PlayerNames struct {
	International string `json:"international"`
}

// CategoryEmbed carries the category's current upstream name.
type CategoryEmbed struct {
	Data Category `json:"data"`
}

// LevelEmbed carries the level's current upstream name.
type LevelEmbed struct {
	Data Level `json:"data"`
}

// TopRun returns the top-ranked run, or false when the leaderboard has no
// runs. An empty-but-valid leaderboard is not an error.
func (l *Leaderboard) TopRun() (*Run, bool) {
	if len(l.Data.Runs) == 0 {
		return nil, false
	}

	return &l.Data.Runs[0].Run, true
}

// ResolvePlayers maps the run's player references to ordered display names
// and parallel profile links. Guests and unresolvable ids get a nil link.
func (l *Leaderboard) ResolvePlayers(run *Run) (names []string, links []*string) {
	byID := make(map[string]*Player, len(l.Data.Players.Data))
	for i := range l.Data.Players.Data {
		p := &l.Data.Players.Data[i]
		if p.ID != "" {
			byID[p.ID] = p
		}
	}

	for _, rp := range run.Players {
		switch rp.Rel {
		case "guest":
			names = append(names, rp.Name)
			links = append(links, nil)
		case "user":
			p, ok := byID[rp.ID]
			if !ok {
				names = append(names, rp.ID)
				links = append(links, nil)

				continue
			}

			name := p.Names.International
			if name == "" {
				name = p.Name
			}

			names = append(names, name)

			if p.Weblink != "" {
				link := p.Weblink
				links = append(links, &link)
			} else {
				links = append(links, nil)
			}
		}
	}

	return names, links
}

// LeaderboardPath builds the lookup path for a full-game or level-scoped
// leaderboard, with top=1, the players/category/level embeds, and variable
// filters in sorted variable-id order so paths are deterministic.
func LeaderboardPath(gameID, categoryID, levelID string, variables map[string]string) string {
	var sb strings.Builder

	if levelID != "" {
		fmt.Fprintf(&sb, "/leaderboards/%s/level/%s/%s", gameID, levelID, categoryID)
	} else {
		fmt.Fprintf(&sb, "/leaderboards/%s/category/%s", gameID, categoryID)
	}

	sb.WriteString("?top=1&embed=players,category,level")

	varIDs := make([]string, 0, len(variables))
	for id := range variables {
		varIDs = append(varIDs, id)
	}

	sort.Strings(varIDs)

	for _, id := range varIDs {
		fmt.Fprintf(&sb, "&var-%s=%s", url.QueryEscape(id), url.QueryEscape(variables[id]))
	}

	return sb.String()
}

// Leaderboard fetches a leaderboard lookup for the given scope.
func (c *Client) Leaderboard(ctx context.Context, gameID, categoryID, levelID string, variables map[string]string) (*Leaderboard, error) {
	var lb Leaderboard
	if err := c.GetJSON(ctx, LeaderboardPath(gameID, categoryID, levelID, variables), &lb); err != nil {
		return nil, err
	}

	return &lb, nil
}
