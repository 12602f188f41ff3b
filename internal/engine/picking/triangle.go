package picking

import "github.com/chewxy/math32"

const triangleEpsilon = 1e-7

// IntersectTriangle tests the ray against triangle v0, v1, v2 using the
// Möller–Trumbore algorithm. Both faces are hit. Hits behind the origin are
// rejected.
func (r Ray) IntersectTriangle(v0, v1, v2 [3]float32) (t float32, hit bool) {
	e1 := sub(v1, v0)
	e2 := sub(v2, v0)

	p := cross(r.Direction, e2)
	det := dot(e1, p)
	if math32.Abs(det) < triangleEpsilon {
		return 0, false // parallel
	}
	inv := 1 / det

	s := sub(r.Origin, v0)
	u := dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := cross(s, e1)
	v := dot(r.Direction, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t = dot(e2, q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
