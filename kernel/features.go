package kernel

import "github.com/tsdalton/GraKeL/core/graph"

// GraphFeatures is the identity FeatureMap for kernels that compare graphs
// directly, such as random-walk or solver-backed kernels. Nothing is learned
// at fit time.
type GraphFeatures struct {
	Required graph.Requirements
}

// Requirements implements FeatureMap.
func (g GraphFeatures) Requirements() graph.Requirements { return g.Required }

// Fit implements FeatureMap.
func (g GraphFeatures) Fit(graphs []*graph.Graph) ([]*graph.Graph, FittedFeatureMap[*graph.Graph], error) {
	return graphs, g, nil
}

// Transform implements FittedFeatureMap.
func (GraphFeatures) Transform(graphs []*graph.Graph) ([]*graph.Graph, error) {
	return graphs, nil
}

// Size implements FittedFeatureMap.
func (GraphFeatures) Size() int { return 0 }
