package srcom

import (
	"context"
	"fmt"
	"net/url"
)

// Game is a game object from search results or a details lookup.
type Game struct {
	ID       string          `json:"id"`
	Names    GameNames       `json:"names"`
	Released int             `json:"released"`
	Weblink  string          `json:"weblink"`
	Levels   LevelsEmbed     `json:"levels"`
	Cats     CategoriesEmbed `json:"categories"`
}

// GameNames holds the international display name of a game.
type GameNames struct {
	International string `json:"international"`
}

// DisplayName returns the game name with its release year when known.
func (g *Game) DisplayName() string {
	if g.Released > 0 {
		return fmt.Sprintf("%s (%d)", g.Names.International, g.Released)
	}

	return g.Names.International
}

// LevelsEmbed lists a game's individual levels.
type LevelsEmbed struct {
	Data []Level `json:"data"`
}

// Level is an individual level within a game.
type Level struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoriesEmbed lists a game's categories with their variables embedded.
type CategoriesEmbed struct {
	Data []Category `json:"data"`
}

// Category is a run category. Type is "per-game" or "per-level".
type Category struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Miscellaneous bool           `json:"miscellaneous"`
	Variables     VariablesEmbed `json:"variables"`
}

// VariablesEmbed lists a category's variables.
type VariablesEmbed struct {
	Data []Variable `json:"data"`
}

// Variable is a category variable. Only subcategory variables partition
// leaderboards; the rest are filters the tracker ignores.
type Variable struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	IsSubcategory bool           `json:"is-subcategory"`
	Values        VariableValues `json:"values"`
}

// VariableValues maps value ids to their labels.
type VariableValues struct {
	Values map[string]VariableValue `json:"values"`
}

// VariableValue is one selectable value of a variable.
type VariableValue struct {
	Label string `json:"label"`
}

type gameList struct {
	Data []Game `json:"data"`
}

type gameDetails struct {
	Data Game `json:"data"`
}

type categoryList struct {
	Data []Category `json:"data"`
}

// SearchGames looks up games by name, returning at most 20 matches.
func (c *Client) SearchGames(ctx context.Context, name string) ([]Game, error) {
	var list gameList

	path := fmt.Sprintf("/games?name=%s&max=20", url.QueryEscape(name))
	if err := c.GetJSON(ctx, path, &list); err != nil {
		return nil, err
	}

	return list.Data, nil
}

// GameDetails fetches a game with its levels and categories (variables
// embedded) in a single request.
func (c *Client) GameDetails(ctx context.Context, gameID string) (*Game, error) {
	var details gameDetails

	path := fmt.Sprintf("/games/%s?embed=levels,categories.variables", url.PathEscape(gameID))
	if err := c.GetJSON(ctx, path, &details); err != nil {
		return nil, err
	}

	return &details.Data, nil
}

// LevelCategories fetches the categories applicable to one level, with
// variables embedded.
func (c *Client) LevelCategories(ctx context.Context, levelID string) ([]Category, error) {
	var list categoryList

	path := fmt.Sprintf("/levels/%s/categories?embed=variables", url.PathEscape(levelID))
	if err := c.GetJSON(ctx, path, &list); err != nil {
		return nil, err
	}

	return list.Data, nil
}
