/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package optimizers selects the optimizer used by train.Loop by name, with the "optimizer"
// hyperparameter. Only the fixed-step gradient descent "sgd" is provided.
package optimizers

import (
	"maps"
	"slices"

	"github.com/gomlx/gradgraph/ml/train"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// ParamOptimizer is the hyperparameter with the name of the optimizer.
// The default value is "sgd", and the valid values are listed by Names.
const ParamOptimizer = "optimizer"

// knownOptimizers maps the optimizer names to their constructors.
var knownOptimizers = map[string]func(params *train.Params) train.Optimizer[float64]{
	"sgd": func(params *train.Params) train.Optimizer[float64] { return train.NewSGD[float64](params) },
}

// Names returns the sorted names of the known optimizers.
func Names() []string {
	return slices.Sorted(maps.Keys(knownOptimizers))
}

// AddParams sets the default value of the ParamOptimizer in params, so it can be parsed by
// train.ParseSettings.
func AddParams(params *train.Params) *train.Params {
	if _, found := params.Get(ParamOptimizer); !found {
		params.Set(ParamOptimizer, "sgd")
	}
	return params
}

// FromParams creates an optimizer from the hyperparameters. See ParamOptimizer.
func FromParams(params *train.Params) (train.Optimizer[float64], error) {
	return ByName(params, train.GetParamOr(params, ParamOptimizer, "sgd"))
}

// ByName returns an optimizer given the name, or an InvalidArgument error if one does not exist.
// The optimizer takes its learning rate from params.
func ByName(params *train.Params, optName string) (train.Optimizer[float64], error) {
	optBuilder, found := knownOptimizers[optName]
	if !found {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "unknown optimizer %q, valid values are %q", optName, Names())
	}
	return optBuilder(params), nil
}
