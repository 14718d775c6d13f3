package ecs

// Mask is a bitset of component types. An archetype is identified by the
// exact set of bits its entities carry.
type Mask uint16

const (
	CompCounter Mask = 1 << iota
	CompPosition
	CompVelocity
	CompAcceleration
	CompPayload
	// Marker components carry no data; they exist only to partition
	// entities into distinct archetypes.
	CompToggle
	CompVariantA
	CompVariantB
	CompVariantC
	CompVariantD
	CompVariantE
	CompVariantF
	CompVariantG
	CompVariantH
)

// dataMask covers the components that have a backing column.
const dataMask = CompCounter | CompPosition | CompVelocity | CompAcceleration | CompPayload

// VariantMasks lists the marker bits used by the fragmentation workload,
// in spawn order.
var VariantMasks = []Mask{
	CompVariantA,
	CompVariantB,
	CompVariantC,
	CompVariantD,
	CompVariantE,
	CompVariantF,
	CompVariantG,
	CompVariantH,
}

// Contains reports whether m includes every bit of sub.
func (m Mask) Contains(sub Mask) bool {
	return m&sub == sub
}

// Counter is a single 64-bit value read by iteration workloads.
type Counter struct {
	Value uint64
}

type Position struct {
	X, Y, Z float32
}

type Velocity struct {
	X, Y, Z float32
}

type Acceleration struct {
	X, Y, Z float32
}

// DataPayload is a cache-line-sized block used by heavy-read workloads.
type DataPayload struct {
	Values [16]float32
}
