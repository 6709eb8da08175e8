// Copyright 2025 ANNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layered feed-forward networks trained by
// backpropagation.
//
// # Overview
//
// A Network is a chain of layers: one Input layer, any number of Hidden
// layers and one Output layer. Adjacent layers are joined by a fully
// connected edge set whose weights, momentum terms and biases are trained
// online, one training pair at a time.
//
// # Basic Usage
//
//	import (
//	    "github.com/annet-ml/annet/data"
//	    "github.com/annet-ml/annet/nn"
//	)
//
//	func main() {
//	    net, err := nn.NewFeedForward(nn.Config{LearningRate: 0.075}, 3, 32, 6)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    set := data.NewTrainingSet()
//	    set.Add([]float64{0, 1, 0}, []float64{1, 0, 0, 0, 1, 0})
//	    net.SetTrainingSet(set)
//
//	    history, err := net.TrainFromData(10000, 0.001)
//	    output, err := net.PropagateForward([]float64{0, 1, 0})
//	}
//
// # Building Topologies by Hand
//
// Layers can be added and connected one at a time. Layers must be added in
// order: Input first, Output last.
//
//	net, _ := nn.New(nn.DefaultConfig())
//	in, _ := nn.NewLayer(3, nn.Input)
//	out, _ := nn.NewLayer(2, nn.Output)
//	_ = net.AddLayer(in)
//	_ = net.AddLayer(out)
//	_ = net.ConnectLayers(in, out)
//
// # Transfer Functions
//
// Sigmoid (default), Tanh, Linear and ReLU. Functions can be selected by
// their exact lowercase name:
//
//	err := net.SetTransferFunctionByName("tanh")
//
// # Persistence
//
// ExportToStorage writes the network, and its training set when one is
// attached, to a checksummed .annet file. Load and ImportFromStorage read
// it back.
//
//	_ = net.ExportToStorage("model.annet")
//	loaded, err := nn.Load("model.annet")
package nn
