package domain

// Layout is a rendering hint; no coordinates are computed server-side
type Layout string

const (
	LayoutForce        Layout = "force"
	LayoutCircular     Layout = "circular"
	LayoutHierarchical Layout = "hierarchical"
	LayoutMatrix       Layout = "matrix"
)

// Valid reports whether l is a known layout
func (l Layout) Valid() bool {
	switch l {
	case LayoutForce, LayoutCircular, LayoutHierarchical, LayoutMatrix:
		return true
	}
	return false
}

// GraphNode is one catalog item in an interaction graph
type GraphNode struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	LocalizedName          string   `json:"localizedName,omitempty"`
	Category               Category `json:"category"`
	RiskLevel              float64  `json:"riskLevel"` // 0-1
	Size                   float64  `json:"size"`
	Color                  string   `json:"color"`
	TotalInteractions      int      `json:"totalInteractions"`
	HighRiskInteractions   int      `json:"highRiskInteractions"`
	BeneficialInteractions int      `json:"beneficialInteractions"`
}

// GraphEdge is one detected interaction
type GraphEdge struct {
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Type      InteractionType `json:"type"`
	Severity  Severity        `json:"severity"`
	Weight    float64         `json:"weight"`
	Color     string          `json:"color"`
	Thickness int             `json:"thickness"`
	Animated  bool            `json:"animated"`
	Label     string          `json:"label"`
}

// GraphCluster groups connected nodes
type GraphCluster struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     []string  `json:"nodes"`
	RiskLevel RiskLevel `json:"riskLevel"` // low, moderate, high
}

// InteractionGraph is the renderable projection of an interaction matrix
type InteractionGraph struct {
	ID           string         `json:"id"`
	Nodes        []GraphNode    `json:"nodes"`
	Edges        []GraphEdge    `json:"edges"`
	Clusters     []GraphCluster `json:"clusters"`
	Layout       Layout         `json:"layout"`
	UnknownItems []string       `json:"unknownItems,omitempty"`
}
