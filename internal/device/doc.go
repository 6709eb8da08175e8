// Package device partitions a SOM's neuron population across compute
// devices and coordinates the per-input search, merge and update passes.
//
// Every device owns one contiguous range of neurons and a SplittedNetExport
// holding its slice of the codebook, grid positions and conscience values.
// A Cluster runs one worker goroutine per device. For each input it
//
//  1. lets every device search its slice for a local best matching unit,
//  2. waits for all of them and merges the candidates into the global BMU
//     (lowest conscience-adjusted distance, ties to the lowest neuron id),
//  3. broadcasts the global BMU to every device, and
//  4. waits for every device to finish its neighborhood update.
//
// No device reads or writes another device's slice.
package device
