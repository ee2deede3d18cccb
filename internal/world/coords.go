package world

// ColumnCoord addresses one chunk column in the XZ plane.
type ColumnCoord struct {
	X, Z int
}

// SectionCoord addresses one section: a column plus a vertical band index.
type SectionCoord struct {
	X, Y, Z int
}

// Column returns the coordinate of the column owning this section.
func (sc SectionCoord) Column() ColumnCoord {
	return ColumnCoord{X: sc.X, Z: sc.Z}
}

// Neighbor returns the section across the given face.
func (sc SectionCoord) Neighbor(face BlockFace) SectionCoord {
	dx, dy, dz := face.Offset()
	return SectionCoord{X: sc.X + dx, Y: sc.Y + dy, Z: sc.Z + dz}
}

// Origin returns the world-space block coordinate of the section's min corner.
func (sc SectionCoord) Origin() (x, y, z int) {
	return sc.X * ChunkSizeX, sc.Y * SectionHeight, sc.Z * ChunkSizeZ
}

// ColumnAt returns the column containing world block (x, z).
func ColumnAt(x, z int) ColumnCoord {
	return ColumnCoord{X: floorDiv(x, ChunkSizeX), Z: floorDiv(z, ChunkSizeZ)}
}

// SectionAt returns the section containing world block (x, y, z). Y is not
// clamped; callers check InSectionRange.
func SectionAt(x, y, z int) SectionCoord {
	return SectionCoord{X: floorDiv(x, ChunkSizeX), Y: floorDiv(y, SectionHeight), Z: floorDiv(z, ChunkSizeZ)}
}

// InSectionRange reports whether a section band index exists.
func InSectionRange(sy int) bool {
	return sy >= 0 && sy < NumSections
}

// ChebyshevDistance is the max-norm distance between two columns.
func (c ColumnCoord) ChebyshevDistance(o ColumnCoord) int {
	return max(abs(c.X-o.X), abs(c.Z-o.Z))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
