package device

// workgroupSize is the number of threads per workgroup of the SOM shaders.
const workgroupSize = 256

// somParamsSize is the byte size of the Params uniform, a multiple of 16.
const somParamsSize = 48

// somSearchShader writes the squared distance of every local neuron to
// out[i] and its conscience-adjusted score to out[n+i].
const somSearchShader = `
struct Params {
    n: u32,
    dim: u32,
    grid: u32,
    kind: u32,
    sigma: f32,
    lr: f32,
    beta: f32,
    bmu: u32,
    bias: f32,
    inv_n: f32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<storage, read> edges: array<f32>;
@group(0) @binding(1) var<storage, read> conscience: array<f32>;
@group(0) @binding(2) var<storage, read> input: array<f32>;
@group(0) @binding(3) var<storage, read_write> out: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= params.n) {
        return;
    }
    var dist: f32 = 0.0;
    for (var k: u32 = 0u; k < params.dim; k = k + 1u) {
        let d = input[k] - edges[k * params.n + i];
        dist = dist + d * d;
    }
    out[i] = dist;
    out[params.n + i] = dist + params.bias * (conscience[i] - params.inv_n);
}
`

// somUpdateShader applies the neighborhood-weighted Hebbian step and the
// conscience update to every local neuron. kind follows kernel.Neighborhood.
const somUpdateShader = `
struct Params {
    n: u32,
    dim: u32,
    grid: u32,
    kind: u32,
    sigma: f32,
    lr: f32,
    beta: f32,
    bmu: u32,
    bias: f32,
    inv_n: f32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<storage, read_write> edges: array<f32>;
@group(0) @binding(1) var<storage, read> positions: array<f32>;
@group(0) @binding(2) var<storage, read_write> conscience: array<f32>;
@group(0) @binding(3) var<storage, read> input: array<f32>;
@group(0) @binding(4) var<storage, read> bmu_pos: array<f32>;
@group(0) @binding(5) var<uniform> params: Params;

fn influence(d: f32, s: f32) -> f32 {
    let r = (d * d) / (s * s);
    var h: f32 = exp(-r / 2.0);
    if (params.kind == 1u) {
        h = select(0.0, 1.0, d <= s);
    } else if (params.kind == 2u) {
        h = select(0.0, exp(-r / 2.0), d <= s);
    } else if (params.kind == 3u) {
        h = (1.0 - r) * exp(-r / 2.0);
    } else if (params.kind == 4u) {
        h = max(0.0, 1.0 - r);
    }
    return h;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= params.n) {
        return;
    }
    var gd: f32 = 0.0;
    for (var g: u32 = 0u; g < params.grid; g = g + 1u) {
        let d = bmu_pos[g] - positions[g * params.n + i];
        gd = gd + d * d;
    }
    let h = influence(sqrt(gd), params.sigma) * params.lr;
    for (var k: u32 = 0u; k < params.dim; k = k + 1u) {
        let idx = k * params.n + i;
        edges[idx] = edges[idx] + h * (input[k] - edges[idx]);
    }
    if (params.beta > 0.0) {
        let won = select(0.0, 1.0, i == params.bmu);
        conscience[i] = conscience[i] * (1.0 - params.beta) + params.beta * won;
    }
}
`
