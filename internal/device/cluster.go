package device

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/errs"
)

type phase int

const (
	phaseSearch phase = iota
	phaseUpdate
	phaseSync
)

type command struct {
	phase  phase
	search SearchParams
	update UpdateParams
	bmu    BMUExport
}

type result struct {
	bmu BMUExport
	err error
}

// worker drives one device. Only its goroutine touches part between
// barriers.
type worker struct {
	dev     Device
	part    *SplittedNetExport
	cmds    chan command
	results chan result
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for cmd := range w.cmds {
		var res result
		switch cmd.phase {
		case phaseSearch:
			res.bmu, res.err = w.dev.LocalBMU(w.part, cmd.search)
		case phaseUpdate:
			res.err = w.dev.Update(w.part, cmd.bmu, cmd.update)
		case phaseSync:
			res.err = w.dev.Sync(w.part)
		}
		w.results <- res
	}
}

// Cluster coordinates the devices training one SOM.
type Cluster struct {
	workers []*worker
	neurons int
	wg      sync.WaitGroup
	closed  bool
}

// NewCluster partitions the network state over devs, loads every slice and
// starts one worker per device. weights and positions hold one row per
// neuron. The cluster takes ownership of devs and releases them on Close.
func NewCluster(devs []Device, weights, positions *mat.Dense, conscience []float64) (*Cluster, error) {
	const op = "device.NewCluster"
	n, dim := weights.Dims()
	pn, grid := positions.Dims()
	if pn != n || len(conscience) != n {
		release(devs)
		return nil, errs.New(errs.KindDimensionMismatch, op,
			"%d weight rows, %d positions, %d conscience values", n, pn, len(conscience))
	}
	ranges, err := Partition(n, len(devs))
	if err != nil {
		release(devs)
		return nil, err
	}

	c := &Cluster{neurons: n}
	for i, dev := range devs {
		part := NewSplittedNetExport(ranges[i], dim, grid)
		part.Scatter(weights, positions, conscience)
		if err := dev.Load(part); err != nil {
			release(devs)
			return nil, deviceError(op, dev, err)
		}
		c.workers = append(c.workers, &worker{
			dev:     dev,
			part:    part,
			cmds:    make(chan command),
			results: make(chan result),
		})
	}

	c.wg.Add(len(c.workers))
	for _, w := range c.workers {
		go w.run(&c.wg)
	}
	return c, nil
}

// Devices returns the number of devices.
func (c *Cluster) Devices() int { return len(c.workers) }

// Ranges returns the neuron range of every device in device order.
func (c *Cluster) Ranges() []Range {
	out := make([]Range, len(c.workers))
	for i, w := range c.workers {
		out[i] = w.part.Range
	}
	return out
}

// run sends cmd to every worker and waits for all of them.
func (c *Cluster) run(cmd command) ([]result, error) {
	for _, w := range c.workers {
		w.cmds <- cmd
	}
	results := make([]result, len(c.workers))
	var failures []error
	for i, w := range c.workers {
		results[i] = <-w.results
		if results[i].err != nil {
			failures = append(failures, deviceError("device.Cluster", w.dev, results[i].err))
		}
	}
	return results, errors.Join(failures...)
}

// Search returns the global BMU of input without modifying any slice.
func (c *Cluster) Search(input []float64, sp SearchParams) (BMUExport, error) {
	if c.closed {
		return BMUExport{}, errs.New(errs.KindDevice, "device.Search", "cluster is closed")
	}
	for _, w := range c.workers {
		w.part.SetInput(input)
	}
	sp.Neurons = c.neurons

	results, err := c.run(command{phase: phaseSearch, search: sp})
	if err != nil {
		return BMUExport{}, err
	}
	best := results[0].bmu
	for _, r := range results[1:] {
		if r.bmu.better(best) {
			best = r.bmu
		}
	}
	return best, nil
}

// Step searches the global BMU of input, broadcasts it and runs the update
// pass on every device.
func (c *Cluster) Step(input []float64, sp SearchParams, up UpdateParams) (BMUExport, error) {
	bmu, err := c.Search(input, sp)
	if err != nil {
		return BMUExport{}, err
	}
	if _, err := c.run(command{phase: phaseUpdate, bmu: bmu, update: up}); err != nil {
		return BMUExport{}, err
	}
	return bmu, nil
}

// Gather copies every slice back into weights and conscience.
func (c *Cluster) Gather(weights *mat.Dense, conscience []float64) error {
	if c.closed {
		return errs.New(errs.KindDevice, "device.Gather", "cluster is closed")
	}
	if _, err := c.run(command{phase: phaseSync}); err != nil {
		return err
	}
	for _, w := range c.workers {
		w.part.Gather(weights, conscience)
	}
	return nil
}

// Close stops the workers and releases the devices.
func (c *Cluster) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for _, w := range c.workers {
		close(w.cmds)
	}
	c.wg.Wait()
	for _, w := range c.workers {
		w.dev.Release()
	}
}

func release(devs []Device) {
	for _, d := range devs {
		d.Release()
	}
}

func deviceError(op string, dev Device, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return &errs.Error{Kind: errs.KindDevice, Op: op, Details: fmt.Sprintf("device %s", dev.Name()), Err: err}
}
