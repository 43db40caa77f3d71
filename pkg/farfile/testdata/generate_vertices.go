//go:build ignore

// This program generates the control vertices and face-varying UVs for
// grid.yaml.
// Run with: go run generate_vertices.go
package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
)

// heights are uneven on purpose so every basis weight matters.
var heights = []float32{
	0.3, -0.7, 1.1, 0.4, -0.2,
	0.9, -1.3, 0.6, 0.1, -0.5,
	0.8, 1.4, 0.3, -0.7, 1.1,
	0.4, -0.2, 0.9, -1.3, 0.6,
}

// uvs cover the two halves of a unit square; grid.yaml's channel maps
// patch 0 to [0, 1, 2, 3] and patch 1 to [1, 4, 5, 2].
var uvs = [][2]float32{{0, 0}, {0.5, 0}, {0.5, 1}, {0, 1}, {1, 0}, {1, 1}}

func main() {
	const cols, rows = 5, 4

	var buf bytes.Buffer
	buf.WriteString("vertices:\n")
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			fmt.Fprintf(&buf, "  - [%d, %d, %s]\n", c, r, format(heights[r*cols+c]))
		}
	}

	buf.WriteString("uvs:\n")
	for _, uv := range uvs {
		fmt.Fprintf(&buf, "  - [%s, %s]\n", format(uv[0]), format(uv[1]))
	}

	if err := os.WriteFile("grid_vertices.yaml", buf.Bytes(), 0644); err != nil {
		panic(err)
	}

	println("Generated grid_vertices.yaml:", cols*rows, "vertices,", len(uvs), "uvs")
}

func format(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
