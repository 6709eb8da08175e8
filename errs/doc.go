// Copyright 2025 ANNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package errs exposes the error kinds returned by annet.
//
// Every error carries one kind; match it with errors.Is against the kind
// sentinels, or switch on KindOf:
//
//	if errors.Is(err, errs.ErrDimensionMismatch) {
//	    // input vector has the wrong length
//	}
package errs
