package train

import (
	"github.com/gomlx/gradgraph/graph"
	"github.com/pkg/errors"
)

// Optimizer updates the trainable values of a graph, once Backward has computed their gradients.
type Optimizer[E any] interface {
	// UpdateGraph changes the trainable leaves of g using their gradients.
	UpdateGraph(g *graph.Graph[E]) error
}

// SGD is a plain stochastic gradient descent with a fixed learning rate: value ← value - lr·gradient.
type SGD[E any] struct {
	LearningRate float64
}

// NewSGD creates an SGD optimizer with the learning rate configured in params.
func NewSGD[E any](params *Params) *SGD[E] {
	return &SGD[E]{LearningRate: params.LearningRate()}
}

// UpdateGraph implements Optimizer. Trainable leaves without a gradient (not reachable from the
// loss) are left unchanged.
func (sgd *SGD[E]) UpdateGraph(g *graph.Graph[E]) error {
	lr := g.Algebra().FromFloat(sgd.LearningRate)
	for _, v := range g.Trainables() {
		if !v.HasGradient() {
			continue
		}
		if err := v.GiveGrad(v.Gradient().Scale(lr)); err != nil {
			return errors.WithMessagef(err, "SGD: scaling the gradient of %s", v)
		}
		if err := v.ApplyGrad(); err != nil {
			return errors.WithMessagef(err, "SGD: updating %s", v)
		}
	}
	return nil
}
