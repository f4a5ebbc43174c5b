// Package geomproc computes per-vertex normals and, optionally, dispatches
// that work across a worker pool so patch meshing doesn't stall the
// caller.
package geomproc

import "math"

type vec3 struct{ x, y, z float32 }

func sub(a, b vec3) vec3 { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }

func cross(a, b vec3) vec3 {
	return vec3{
		a.y*b.z - a.z*b.y,
		a.z*b.x - a.x*b.z,
		a.x*b.y - a.y*b.x,
	}
}

func normalize(v vec3) vec3 {
	l := float32(math.Sqrt(float64(v.x*v.x + v.y*v.y + v.z*v.z)))
	if l < 1e-12 {
		return vec3{0, 0, 0}
	}
	return vec3{v.x / l, v.y / l, v.z / l}
}

func vertexAt(positions []float32, i uint16) vec3 {
	o := int(i) * 3
	return vec3{positions[o], positions[o+1], positions[o+2]}
}

// IndexedNormals computes one normal per vertex by accumulating the
// (unnormalized) face normal of every triangle touching it, then
// normalizing. The result has the same vertex count as positions.
func IndexedNormals(positions []float32, indices []uint16) []float32 {
	vertexCount := len(positions) / 3
	acc := make([]vec3, vertexCount)

	for t := 0; t+2 < len(indices); t += 3 {
		ia, ib, ic := indices[t], indices[t+1], indices[t+2]
		a, b, c := vertexAt(positions, ia), vertexAt(positions, ib), vertexAt(positions, ic)
		faceNormal := cross(sub(b, a), sub(c, a))
		acc[ia] = add(acc[ia], faceNormal)
		acc[ib] = add(acc[ib], faceNormal)
		acc[ic] = add(acc[ic], faceNormal)
	}

	out := make([]float32, vertexCount*3)
	for i, v := range acc {
		n := normalize(v)
		out[i*3+0] = n.x
		out[i*3+1] = n.y
		out[i*3+2] = n.z
	}
	return out
}

func add(a, b vec3) vec3 { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }

// Deindexed produces a flat-shaded, non-indexed triangle soup from indexed
// buffers: every triangle gets its own three vertices (duplicated from the
// source buffers) and a single flat face normal, trading vertex count for
// crisp per-face shading.
func Deindexed(positions, colors []float32, indices []uint16) (outPositions, outColors, outNormals []float32) {
	triangles := len(indices) / 3
	outPositions = make([]float32, 0, triangles*9)
	outColors = make([]float32, 0, triangles*9)
	outNormals = make([]float32, 0, triangles*9)

	for t := 0; t+2 < len(indices); t += 3 {
		ia, ib, ic := indices[t], indices[t+1], indices[t+2]
		a, b, c := vertexAt(positions, ia), vertexAt(positions, ib), vertexAt(positions, ic)
		n := normalize(cross(sub(b, a), sub(c, a)))

		for _, i := range [3]uint16{ia, ib, ic} {
			v := vertexAt(positions, i)
			outPositions = append(outPositions, v.x, v.y, v.z)
			outNormals = append(outNormals, n.x, n.y, n.z)
			if colors != nil {
				co := int(i) * 3
				outColors = append(outColors, colors[co], colors[co+1], colors[co+2])
			}
		}
	}
	return outPositions, outColors, outNormals
}
