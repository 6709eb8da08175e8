//go:build windows

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"gonum.org/v1/gonum/floats"

	"github.com/annet-ml/annet/internal/errs"
)

// WebGPUDevice runs the SOM kernels as WGSL compute shaders. Slices are
// kept on the GPU in float32 between Load and Sync.
type WebGPUDevice struct {
	id       int
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	search   *wgpu.ComputePipeline
	update   *wgpu.ComputePipeline
	slices   map[*SplittedNetExport]*gpuSlice
}

// gpuSlice holds the resident buffers of one SplittedNetExport.
type gpuSlice struct {
	n, dim, grid int
	edges        *wgpu.Buffer
	positions    *wgpu.Buffer
	conscience   *wgpu.Buffer
	out          *wgpu.Buffer // [2n]: distances then scores
}

// OpenWebGPU acquires a GPU device. It fails with a device error when no
// adapter or native library is available.
func OpenWebGPU(id int) (dev Device, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = errs.New(errs.KindDevice, "device.OpenWebGPU", "native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, errs.Wrap(errs.KindDevice, "device.OpenWebGPU", fmt.Errorf("failed to request adapter: %w", err))
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, errs.Wrap(errs.KindDevice, "device.OpenWebGPU", fmt.Errorf("failed to request device: %w", err))
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errs.New(errs.KindDevice, "device.OpenWebGPU", "failed to get queue")
	}

	d := &WebGPUDevice{
		id:       id,
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		slices:   make(map[*SplittedNetExport]*gpuSlice),
	}
	d.search = d.pipeline(somSearchShader)
	d.update = d.pipeline(somUpdateShader)
	return d, nil
}

func (d *WebGPUDevice) pipeline(code string) *wgpu.ComputePipeline {
	shader := d.device.CreateShaderModuleWGSL(code)
	defer shader.Release()
	return d.device.CreateComputePipelineSimple(nil, shader, "main")
}

// ID returns the device index.
func (d *WebGPUDevice) ID() int { return d.id }

// Name describes the device.
func (d *WebGPUDevice) Name() string { return fmt.Sprintf("webgpu:%d", d.id) }

// Load uploads the slice.
func (d *WebGPUDevice) Load(p *SplittedNetExport) error {
	dim, n := p.Edges.Dims()
	grid, _ := p.Positions.Dims()
	d.slices[p] = &gpuSlice{
		n:    n,
		dim:  dim,
		grid: grid,
		edges: d.createBuffer(float32Bytes(p.Edges.RawMatrix().Data),
			wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst),
		positions:  d.createBuffer(float32Bytes(p.Positions.RawMatrix().Data), wgpu.BufferUsageStorage),
		conscience: d.createBuffer(float32Bytes(p.Conscience), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc),
		out: d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
			Size:  uint64(8 * n), //nolint:gosec // G115: n is a positive slice length
		}),
	}
	return nil
}

func (d *WebGPUDevice) resident(p *SplittedNetExport) (*gpuSlice, error) {
	s, ok := d.slices[p]
	if !ok {
		return nil, errs.New(errs.KindDevice, "device.WebGPU", "slice %v was not loaded", p.Range)
	}
	return s, nil
}

// LocalBMU runs the distance shader and picks the first minimal score.
func (d *WebGPUDevice) LocalBMU(p *SplittedNetExport, sp SearchParams) (BMUExport, error) {
	s, err := d.resident(p)
	if err != nil {
		return BMUExport{}, err
	}
	input := d.createBuffer(float32Bytes(p.Input), wgpu.BufferUsageStorage)
	defer input.Release()
	params := d.params(s, 0, UpdateParams{}, sp)
	defer params.Release()

	d.dispatch(d.search, s.n, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, s.edges, 0, uint64(4*s.n*s.dim)), //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(1, s.conscience, 0, uint64(4*s.n)),  //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(2, input, 0, uint64(4*s.dim)),       //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(3, s.out, 0, uint64(8*s.n)),         //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(4, params, 0, somParamsSize),
	})

	raw, err := d.readBuffer(s.out, uint64(8*s.n)) //nolint:gosec // G115: sizes are positive
	if err != nil {
		return BMUExport{}, errs.Wrap(errs.KindDevice, "device.WebGPU", err)
	}
	out := make([]float64, 2*s.n)
	float64sFrom(raw, out)
	copy(p.dist, out[:s.n])
	copy(p.score, out[s.n:])

	i := floats.MinIdx(p.score)
	return BMUExport{
		ID:       p.Range.Lo + i,
		DeviceID: d.id,
		Position: p.Position(i),
		Score:    p.score[i],
		Distance: p.dist[i],
	}, nil
}

// Update runs the neighborhood shader.
func (d *WebGPUDevice) Update(p *SplittedNetExport, bmu BMUExport, up UpdateParams) error {
	s, err := d.resident(p)
	if err != nil {
		return err
	}
	local := uint32(math.MaxUint32)
	if p.Range.Contains(bmu.ID) {
		local = uint32(bmu.ID - p.Range.Lo) //nolint:gosec // G115: index within the slice
	}

	input := d.createBuffer(float32Bytes(p.Input), wgpu.BufferUsageStorage)
	defer input.Release()
	pos := d.createBuffer(float32Bytes(bmu.Position), wgpu.BufferUsageStorage)
	defer pos.Release()
	params := d.params(s, local, up, SearchParams{})
	defer params.Release()

	d.dispatch(d.update, s.n, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, s.edges, 0, uint64(4*s.n*s.dim)),    //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(1, s.positions, 0, uint64(4*s.n*s.grid)), //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(2, s.conscience, 0, uint64(4*s.n)),     //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(3, input, 0, uint64(4*s.dim)),          //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(4, pos, 0, uint64(4*s.grid)),           //nolint:gosec // G115: sizes are positive
		wgpu.BufferBindingEntry(5, params, 0, somParamsSize),
	})
	return nil
}

// Sync downloads the codebook and conscience values into p.
func (d *WebGPUDevice) Sync(p *SplittedNetExport) error {
	s, err := d.resident(p)
	if err != nil {
		return err
	}
	raw, err := d.readBuffer(s.edges, uint64(4*s.n*s.dim)) //nolint:gosec // G115: sizes are positive
	if err != nil {
		return errs.Wrap(errs.KindDevice, "device.WebGPU", err)
	}
	float64sFrom(raw, p.Edges.RawMatrix().Data)

	raw, err = d.readBuffer(s.conscience, uint64(4*s.n)) //nolint:gosec // G115: sizes are positive
	if err != nil {
		return errs.Wrap(errs.KindDevice, "device.WebGPU", err)
	}
	float64sFrom(raw, p.Conscience)
	return nil
}

// Release frees every resident buffer and the device.
func (d *WebGPUDevice) Release() {
	for p, s := range d.slices {
		s.edges.Release()
		s.positions.Release()
		s.conscience.Release()
		s.out.Release()
		delete(d.slices, p)
	}
	if d.search != nil {
		d.search.Release()
	}
	if d.update != nil {
		d.update.Release()
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

// params builds the uniform buffer shared by both shaders.
func (d *WebGPUDevice) params(s *gpuSlice, bmu uint32, up UpdateParams, sp SearchParams) *wgpu.Buffer {
	buf := make([]byte, somParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(s.n))               //nolint:gosec // G115: positive length
	binary.LittleEndian.PutUint32(buf[4:], uint32(s.dim))             //nolint:gosec // G115: positive length
	binary.LittleEndian.PutUint32(buf[8:], uint32(s.grid))            //nolint:gosec // G115: positive length
	binary.LittleEndian.PutUint32(buf[12:], uint32(up.Neighborhood)) //nolint:gosec // G115: small enum
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(float32(up.Sigma)))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(float32(up.LearningRate)))
	binary.LittleEndian.PutUint32(buf[24:], math.Float32bits(float32(up.ConscienceRate)))
	binary.LittleEndian.PutUint32(buf[28:], bmu)
	binary.LittleEndian.PutUint32(buf[32:], math.Float32bits(float32(sp.ConscienceBias)))
	if sp.Neurons > 0 {
		binary.LittleEndian.PutUint32(buf[36:], math.Float32bits(1/float32(sp.Neurons)))
	}

	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             somParamsSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, somParamsSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), somParamsSize), buf)
	buffer.Unmap()
	return buffer
}

// dispatch runs pipeline over n invocations and submits the pass.
func (d *WebGPUDevice) dispatch(pipeline *wgpu.ComputePipeline, n int, entries []wgpu.BindGroupEntry) {
	bindGroup := d.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115: Safe conversion, workgroup count is non-negative
	computePass.DispatchWorkgroups(uint32((n+workgroupSize-1)/workgroupSize), 1, 1)
	computePass.End()

	d.queue.Submit(encoder.Finish(nil))
}

// createBuffer creates a GPU buffer initialized with data.
func (d *WebGPUDevice) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()
	return buffer
}

// readBuffer copies a storage buffer back to host memory through a staging
// buffer.
func (d *WebGPUDevice) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	result := append([]byte(nil), unsafe.Slice((*byte)(mappedPtr), size)...)
	staging.Unmap()
	return result, nil
}

func float32Bytes(xs []float64) []byte {
	out := make([]byte, 4*len(xs))
	for i, x := range xs {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(x)))
	}
	return out
}

func float64sFrom(raw []byte, dst []float64) {
	for i := range dst {
		dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
	}
}
