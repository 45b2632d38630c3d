package types

type NodeKind string

const (
	NodeModule    NodeKind = "module"
	NodeComponent NodeKind = "component"
)

type EdgeKind string

const (
	// EdgeDependsOn links a module version to a target module version.
	EdgeDependsOn EdgeKind = "depends-on"
	// EdgeConsumes links a component to the component owning a contract
	// it needs.
	EdgeConsumes EdgeKind = "consumes"
	// EdgeContains links a module version to its components.
	EdgeContains EdgeKind = "contains"
)

type GraphEdge struct {
	From  string   `yaml:"from" json:"from"`
	To    string   `yaml:"to" json:"to"`
	Kind  EdgeKind `yaml:"kind" json:"kind"`
	Label string   `yaml:"label,omitempty" json:"label,omitempty"`
}

type GraphReport struct {
	Nodes  []string    `yaml:"nodes" json:"nodes"`
	Edges  []GraphEdge `yaml:"edges" json:"edges"`
	Order  []string    `yaml:"order,omitempty" json:"order,omitempty"`
	Cycles [][]string  `yaml:"cycles,omitempty" json:"cycles,omitempty"`
}
