package graph

// Node is one owned game in the export schema consumed by the renderer.
// Nullable numerics marshal as JSON null, never a silent zero.
type Node struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Name          string   `json:"name"`
	AverageRating *float64 `json:"averagerating"`
	AverageWeight *float64 `json:"averageweight"`
	MinPlayers    *int     `json:"minplayers"`
	MaxPlayers    *int     `json:"maxplayers"`
	PlayingTime   *int     `json:"playingtime"`
	Mechanics     []string `json:"mechanics"`
	Categories    []string `json:"categories"`
	BGGURL        string   `json:"bggUrl"`
}

// Edge is an undirected similarity relationship. Source < Target always
// holds (canonical sorted-pair key), so each unordered pair appears at most
// once and self-loops are impossible.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Graph is the full export artifact: every owned item as a node, plus the
// threshold-filtered edge set.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph returns an empty graph with non-nil slices so empty artifacts
// marshal as [] rather than null.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}
