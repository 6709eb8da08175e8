// Package serialization implements the .annet container used to persist
// networks.
//
//	Format Structure:
//	  0x00 [4 bytes: Magic "ANNT"]
//	  0x04 [4 bytes: Version (uint32 LE)]
//	  0x08 [4 bytes: Flags (uint32 LE)]
//	  0x0C [4 bytes: Reserved]
//	  0x10 [8 bytes: Header Size (uint64 LE)]
//	  0x18 [8 bytes: Data Size (uint64 LE)]
//	  0x20 [32 bytes: SHA-256 of the data section]
//	  0x40 [Header: JSON metadata, zero padded to 64 bytes]
//	       [Data: float64 LE tensors]
//
// The JSON header carries the model type, the hyperparameter block, the
// ordered layer descriptors and a tensor table. Edge matrices are stored per
// layer boundary in row-major (target, source) order.
//
// Example usage:
//
//	err := serialization.WriteFile("net.annet", header, tensors)
//
//	f, err := serialization.ReadFile("net.annet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, err := f.Tensor(serialization.EdgeWeightName(0), 32, 3)
package serialization
