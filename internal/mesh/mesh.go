// Package mesh defines the buffers a built patch mesh is made of and the
// GPU-memory accounting used by the viewer's statistics and garbage
// collector.
package mesh

// Record holds one patch's built geometry: flat float32 buffers for
// position/colour/normal and a uint16 triangle index buffer, all owned by
// the record (never aliased into a tile geometry store template after
// construction).
type Record struct {
	Positions []float32 // xyz per vertex
	Colors    []float32 // rgb per vertex
	Normals   []float32 // xyz per vertex
	Indices   []uint16

	disposed bool
}

// TriangleCount returns the number of triangles in the record: the index
// buffer's triangle count for indexed geometry, or the vertex count's for
// de-indexed (flat-shaded) triangle soup, which carries no index buffer.
func (r *Record) TriangleCount() int {
	if len(r.Indices) > 0 {
		return len(r.Indices) / 3
	}
	return r.VertexCount() / 3
}

// VertexCount returns the number of vertices in the positions buffer.
func (r *Record) VertexCount() int {
	return len(r.Positions) / 3
}

// GPUMemoryBytes estimates the device memory this record would occupy:
// 4 bytes per float32 component, 2 bytes per uint16 index.
func (r *Record) GPUMemoryBytes() int {
	floats := len(r.Positions) + len(r.Colors) + len(r.Normals)
	return floats*4 + len(r.Indices)*2
}

// Disposed reports whether Dispose has already run.
func (r *Record) Disposed() bool { return r.disposed }

// Dispose releases the record's buffers. Safe to call more than once.
func (r *Record) Dispose() {
	if r.disposed {
		return
	}
	r.Positions = nil
	r.Colors = nil
	r.Normals = nil
	r.Indices = nil
	r.disposed = true
}
