// Copyright 2025 ANNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package som provides self-organizing maps trained by competitive learning.
//
// # Overview
//
// A map is a Width×Height grid of neurons, each holding a codebook vector
// of InputSize weights. For every input the best matching unit (BMU) is the
// neuron whose conscience-adjusted distance is smallest; every neuron then
// moves towards the input in proportion to a neighborhood kernel of its
// grid distance to the BMU. The kernel spread and the learning rate decay
// exponentially over the training cycles.
//
// # Basic Usage
//
//	m, err := som.New(som.Config{InputSize: 3, Width: 10, Height: 10})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m.SetTrainingSet(set)
//	history, err := m.TrainFromData(200, 0.01)
//	bmu, err := m.BMU([]float64{0.2, 0.4, 0.1})
//
// # Devices
//
// The neuron population can be partitioned over several devices. Each
// device searches and updates its own contiguous slice; results are
// identical to a single device up to float precision.
//
//	m, err := som.New(som.Config{InputSize: 3, Width: 64, Height: 64, Devices: 4})
//
// The WebGPU backend runs the passes as compute shaders in float32 and is
// available on windows builds.
package som
