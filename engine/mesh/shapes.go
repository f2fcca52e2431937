package mesh

import (
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/chewxy/math32"
)

// Sphere builds a UV sphere centred on the origin. Triangles wind clockwise when seen
// from outside (left-handed, FrontFaceCW). stacks and slices are raised to 2 and 3.
//
// Parameters:
//   - radius: sphere radius
//   - stacks: latitude bands
//   - slices: longitude bands
//
// Returns:
//   - MeshData: (stacks+1)*(slices+1) vertices and stacks*slices*6 indices
func Sphere(radius float32, stacks, slices int) MeshData {
	stacks = max(stacks, 2)
	slices = max(slices, 3)

	data := MeshData{
		Vertices: make([]GPUVertex, 0, (stacks+1)*(slices+1)),
		Indices:  make([]uint32, 0, stacks*slices*6),
	}
	for i := 0; i <= stacks; i++ {
		v := float32(i) / float32(stacks)
		theta := v * math32.Pi
		st, ct := math32.Sin(theta), math32.Cos(theta)
		for j := 0; j <= slices; j++ {
			u := float32(j) / float32(slices)
			phi := u * 2 * math32.Pi
			sp, cp := math32.Sin(phi), math32.Cos(phi)

			n := [3]float32{st * cp, ct, st * sp}
			data.Vertices = append(data.Vertices, GPUVertex{
				Position:  [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
				TexCoord:  [2]float32{u, v},
				Normal:    n,
				Tangent:   [3]float32{-sp, 0, cp},
				Bitangent: [3]float32{ct * cp, -st, ct * sp},
			})
		}
	}

	row := uint32(slices + 1)
	for i := range uint32(stacks) {
		for j := range uint32(slices) {
			a := i*row + j
			b := a + row
			c := a + 1
			d := b + 1
			data.Indices = append(data.Indices, a, c, b, c, d, b)
		}
	}
	return data
}

// cubeFace is one side of the cube: outward normal and the +U direction.
type cubeFace struct {
	normal  [3]float32
	tangent [3]float32
}

var cubeFaces = [6]cubeFace{
	{normal: [3]float32{0, 0, -1}, tangent: [3]float32{1, 0, 0}},
	{normal: [3]float32{0, 0, 1}, tangent: [3]float32{-1, 0, 0}},
	{normal: [3]float32{1, 0, 0}, tangent: [3]float32{0, 0, 1}},
	{normal: [3]float32{-1, 0, 0}, tangent: [3]float32{0, 0, -1}},
	{normal: [3]float32{0, 1, 0}, tangent: [3]float32{1, 0, 0}},
	{normal: [3]float32{0, -1, 0}, tangent: [3]float32{1, 0, 0}},
}

// Cube builds an axis-aligned cube with four vertices per face so every face has its own UVs.
// Triangles wind clockwise when seen from outside.
//
// Parameters:
//   - size: edge length
//
// Returns:
//   - MeshData: 24 vertices and 36 indices
func Cube(size float32) MeshData {
	h := size / 2
	data := MeshData{
		Vertices: make([]GPUVertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for _, f := range cubeFaces {
		// +V runs down the face, so n x t gives the bitangent.
		bt := common.Cross3(f.normal, f.tangent)
		base := uint32(len(data.Vertices))
		for _, uv := range [4][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
			su := (uv[0]*2 - 1) * h
			sv := (uv[1]*2 - 1) * h
			var p [3]float32
			for k := range 3 {
				p[k] = f.normal[k]*h + f.tangent[k]*su + bt[k]*sv
			}
			data.Vertices = append(data.Vertices, GPUVertex{
				Position:  p,
				TexCoord:  uv,
				Normal:    f.normal,
				Tangent:   f.tangent,
				Bitangent: bt,
			})
		}
		data.Indices = append(data.Indices, base, base+1, base+2, base+1, base+3, base+2)
	}
	return data
}
