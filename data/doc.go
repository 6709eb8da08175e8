// Copyright 2025 ANNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides training sets for nn and som networks.
//
// A TrainingSet is an ordered list of input/output pairs owned by the
// caller and attached to a network by reference. Sets can be built in
// code, read from CSV, or featurized from text with a tokenizer:
//
//	f, _ := os.Open("pairs.csv")
//	set, err := data.ReadCSV(f, 3, 6)
//
//	tok, _ := tokenizer.NewTikToken("cl100k_base")
//	feat, _ := data.NewTextFeaturizer(tok, 64)
//	docs, err := feat.TrainingSet([]string{"first document", "second"})
package data
