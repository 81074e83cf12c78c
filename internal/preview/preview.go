// Package preview exports a quick-look glTF point cloud from a finished
// TSP file. A brick holds a continuous float32 scalar field rather than a
// discrete occupancy grid, so there is no surface to mesh; instead each
// voxel of the coarsest octree node's time-root brick becomes one colored
// point, shaded along a viridis-like ramp by its normalized scalar value.
package preview

import (
	"fmt"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/header"
)

// ExportRootBrick reads tspPath's coarsest octree node (the first BST
// block following the header) and writes its time-root brick as a
// colored point cloud to glbPath.
func ExportRootBrick(tspPath, glbPath string) error {
	f, err := os.Open(tspPath)
	if err != nil {
		return fmt.Errorf("preview: open %s: %w", tspPath, err)
	}
	defer f.Close()

	h, err := header.ReadTSP(f)
	if err != nil {
		return fmt.Errorf("preview: read header: %w", err)
	}

	root, err := brick.ReadFrom(f, int(h.Bx), int(h.By), int(h.Bz))
	if err != nil {
		return fmt.Errorf("preview: read root brick: %w", err)
	}

	doc, err := buildPointCloud(root)
	if err != nil {
		return err
	}

	if err := gltf.SaveBinary(doc, glbPath); err != nil {
		return fmt.Errorf("preview: save %s: %w", glbPath, err)
	}
	return nil
}

func buildPointCloud(b *brick.Brick) (*gltf.Document, error) {
	min, max := scalarRange(b)
	span := max - min
	if span == 0 {
		span = 1
	}

	positions := make([][3]float32, 0, b.SizeVoxels())
	colors := make([][4]float32, 0, b.SizeVoxels())

	for z := 0; z < b.Bz; z++ {
		for y := 0; y < b.By; y++ {
			for x := 0; x < b.Bx; x++ {
				v, err := b.Get(x, y, z)
				if err != nil {
					return nil, fmt.Errorf("preview: get voxel: %w", err)
				}
				positions = append(positions, [3]float32{float32(x), float32(y), float32(z)})
				rgb := viridis((float64(v) - min) / span)
				colors = append(colors, [4]float32{rgb[0], rgb[1], rgb[2], 1})
			}
		}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "tspforge preview"

	posAccessor := modeler.WritePosition(doc, positions)
	colorAccessor := modeler.WriteColor(doc, colors)

	prim := &gltf.Primitive{
		Mode: gltf.PrimitivePoints,
		Attributes: map[string]int{
			gltf.POSITION: posAccessor,
			gltf.COLOR_0:  colorAccessor,
		},
	}

	doc.Meshes = []*gltf.Mesh{{Name: "RootBrick", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	return doc, nil
}

func scalarRange(b *brick.Brick) (min, max float64) {
	min, max = float64(b.Data[0]), float64(b.Data[0])
	for _, v := range b.Data {
		f := float64(v)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max
}

// viridis approximates the viridis color ramp with a small set of
// control points, linearly interpolated. t is clamped to [0,1].
func viridis(t float64) [3]float32 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	stops := [][3]float32{
		{0.267, 0.005, 0.329},
		{0.283, 0.141, 0.458},
		{0.254, 0.265, 0.530},
		{0.207, 0.372, 0.553},
		{0.164, 0.471, 0.558},
		{0.128, 0.567, 0.551},
		{0.135, 0.659, 0.518},
		{0.267, 0.749, 0.441},
		{0.478, 0.821, 0.318},
		{0.741, 0.873, 0.150},
		{0.993, 0.906, 0.144},
	}
	n := len(stops)
	pos := t * float64(n-1)
	i := int(pos)
	if i >= n-1 {
		return stops[n-1]
	}
	frac := float32(pos - float64(i))
	a, b := stops[i], stops[i+1]
	return [3]float32{
		a[0] + frac*(b[0]-a[0]),
		a[1] + frac*(b[1]-a[1]),
		a[2] + frac*(b[2]-a[2]),
	}
}
