package scene

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadOBJ reads vertex positions and faces from a Wavefront OBJ file.
// Polygons are fan-triangulated; texture and normal references are ignored.
func loadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	mesh := &Mesh{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: vertex needs three coordinates", path, line)
			}
			var p [3]float32
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, line, err)
				}
				p[i] = float32(v)
			}
			mesh.Positions = append(mesh.Positions, p)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs at least three vertices", path, line)
			}
			poly := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := objIndex(ref, len(mesh.Positions))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, line, err)
				}
				poly = append(poly, idx)
			}
			for i := 1; i+1 < len(poly); i++ {
				mesh.Triangles = append(mesh.Triangles, [3]uint32{poly[0], poly[i], poly[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mesh.validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

// objIndex resolves a face reference such as "7", "7/2/3" or "-1" to a
// zero-based position index.
func objIndex(ref string, count int) (uint32, error) {
	head, _, _ := strings.Cut(ref, "/")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("bad face reference %q", ref)
	}
	switch {
	case n > 0 && n <= count:
		return uint32(n - 1), nil
	case n < 0 && -n <= count:
		return uint32(count + n), nil
	default:
		return 0, fmt.Errorf("face reference %q outside %d vertices", ref, count)
	}
}
