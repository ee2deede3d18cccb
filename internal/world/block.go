package world

type BlockType uint8

const (
	BlockTypeAir BlockType = iota
	BlockTypeBedrock
	BlockTypeStone
	BlockTypeCobblestone
	BlockTypeDirt
	BlockTypeGrass
	BlockTypeOakLog
	BlockTypeOakLeaves
	BlockTypeCoalOre
	BlockTypeIronOre
	BlockTypeSand
	BlockTypeGravel
	BlockTypeGlass

	numBlockTypes
)

// TextureID identifies one material; the renderer issues one draw call per ID.
type TextureID uint16

const (
	TextureNone TextureID = iota
	TextureBedrock
	TextureStone
	TextureCobblestone
	TextureDirt
	TextureGrassTop
	TextureGrassSide
	TextureOakLogTop
	TextureOakLog
	TextureOakLeaves
	TextureCoalOre
	TextureIronOre
	TextureSand
	TextureGravel
	TextureGlass

	TextureCount
)

var textureNames = [...]string{
	TextureNone:        "",
	TextureBedrock:     "bedrock.png",
	TextureStone:       "stone.png",
	TextureCobblestone: "cobblestone.png",
	TextureDirt:        "dirt.png",
	TextureGrassTop:    "grass_top.png",
	TextureGrassSide:   "grass_side.png",
	TextureOakLogTop:   "oak_log_top.png",
	TextureOakLog:      "oak_log.png",
	TextureOakLeaves:   "oak_leaves.png",
	TextureCoalOre:     "coal_ore.png",
	TextureIronOre:     "iron_ore.png",
	TextureSand:        "sand.png",
	TextureGravel:      "gravel.png",
	TextureGlass:       "glass.png",
}

// Name returns the asset name the renderer should bind for this material.
func (t TextureID) Name() string {
	if int(t) < len(textureNames) {
		return textureNames[t]
	}
	return ""
}

// BlockTextures holds the per-face texture slots. Unset slots fall back to All.
type BlockTextures struct {
	All    TextureID
	Top    TextureID
	Bottom TextureID
	Side   TextureID
	Front  TextureID
}

// BlockProps are the immutable properties of a block type.
type BlockProps struct {
	Name        string
	Solid       bool
	Transparent bool
	Falling     bool
	Breakable   bool
	Drop        BlockType
	// BaseLight scales every face of the block; rock reads darker than soil.
	BaseLight float32
	Textures  BlockTextures
}

var unknownBlock = BlockProps{Name: "unknown", Transparent: true, BaseLight: 1}

var blockRegistry = [numBlockTypes]BlockProps{
	BlockTypeAir:         {Name: "air", Transparent: true, BaseLight: 1},
	BlockTypeBedrock:     {Name: "bedrock", Solid: true, Drop: BlockTypeBedrock, BaseLight: 0.7, Textures: BlockTextures{All: TextureBedrock}},
	BlockTypeStone:       {Name: "stone", Solid: true, Breakable: true, Drop: BlockTypeCobblestone, BaseLight: 0.8, Textures: BlockTextures{All: TextureStone}},
	BlockTypeCobblestone: {Name: "cobblestone", Solid: true, Breakable: true, Drop: BlockTypeCobblestone, BaseLight: 0.8, Textures: BlockTextures{All: TextureCobblestone}},
	BlockTypeDirt:        {Name: "dirt", Solid: true, Breakable: true, Drop: BlockTypeDirt, BaseLight: 1, Textures: BlockTextures{All: TextureDirt}},
	BlockTypeGrass: {Name: "grass", Solid: true, Breakable: true, Drop: BlockTypeDirt, BaseLight: 1,
		Textures: BlockTextures{Top: TextureGrassTop, Bottom: TextureDirt, Side: TextureGrassSide}},
	BlockTypeOakLog: {Name: "oak_log", Solid: true, Breakable: true, Drop: BlockTypeOakLog, BaseLight: 1,
		Textures: BlockTextures{Top: TextureOakLogTop, Bottom: TextureOakLogTop, Side: TextureOakLog}},
	BlockTypeOakLeaves: {Name: "oak_leaves", Solid: true, Transparent: true, Breakable: true, Drop: BlockTypeAir, BaseLight: 1, Textures: BlockTextures{All: TextureOakLeaves}},
	BlockTypeCoalOre:   {Name: "coal_ore", Solid: true, Breakable: true, Drop: BlockTypeCoalOre, BaseLight: 0.75, Textures: BlockTextures{All: TextureCoalOre}},
	BlockTypeIronOre:   {Name: "iron_ore", Solid: true, Breakable: true, Drop: BlockTypeIronOre, BaseLight: 0.75, Textures: BlockTextures{All: TextureIronOre}},
	BlockTypeSand:      {Name: "sand", Solid: true, Falling: true, Breakable: true, Drop: BlockTypeSand, BaseLight: 1, Textures: BlockTextures{All: TextureSand}},
	BlockTypeGravel:    {Name: "gravel", Solid: true, Falling: true, Breakable: true, Drop: BlockTypeGravel, BaseLight: 0.9, Textures: BlockTextures{All: TextureGravel}},
	BlockTypeGlass:     {Name: "glass", Solid: true, Transparent: true, Breakable: true, Drop: BlockTypeAir, BaseLight: 1, Textures: BlockTextures{All: TextureGlass}},
}

// Props returns the registry entry for b. Unknown IDs resolve to a
// transparent, non-solid record.
func Props(b BlockType) *BlockProps {
	if b < numBlockTypes {
		return &blockRegistry[b]
	}
	return &unknownBlock
}

// BlockByName looks up a block type by its registry name.
func BlockByName(name string) (BlockType, bool) {
	for id := range blockRegistry {
		if blockRegistry[id].Name == name {
			return BlockType(id), true
		}
	}
	return BlockTypeAir, false
}

func (b BlockType) String() string {
	return Props(b).Name
}

// IsOpaque reports whether b hides the faces of its neighbours.
func (b BlockType) IsOpaque() bool {
	return b != BlockTypeAir && !Props(b).Transparent
}

// TextureFor resolves the texture drawn on the given face.
func (p *BlockProps) TextureFor(face BlockFace) TextureID {
	t := p.Textures
	var slot TextureID
	switch face {
	case FaceTop:
		slot = t.Top
	case FaceBottom:
		slot = t.Bottom
	case FaceNorth:
		slot = t.Front
		if slot == TextureNone {
			slot = t.Side
		}
	default:
		slot = t.Side
	}
	if slot == TextureNone {
		return t.All
	}
	return slot
}

// BlockFace identifies a face of a block
type BlockFace int

const (
	FaceNorth BlockFace = iota // +Z
	FaceSouth                  // -Z
	FaceEast                   // +X
	FaceWest                   // -X
	FaceTop                    // +Y
	FaceBottom                 // -Y
)

// AllFaces lists the faces in BlockFace order.
var AllFaces = [6]BlockFace{FaceNorth, FaceSouth, FaceEast, FaceWest, FaceTop, FaceBottom}

var faceOffsets = [6][3]int{
	FaceNorth:  {0, 0, 1},
	FaceSouth:  {0, 0, -1},
	FaceEast:   {1, 0, 0},
	FaceWest:   {-1, 0, 0},
	FaceTop:    {0, 1, 0},
	FaceBottom: {0, -1, 0},
}

// Offset returns the unit step from a block to its neighbour across this face.
func (f BlockFace) Offset() (dx, dy, dz int) {
	o := faceOffsets[f]
	return o[0], o[1], o[2]
}

// Opposite returns the face pointing the other way.
func (f BlockFace) Opposite() BlockFace {
	return f ^ 1
}

func (f BlockFace) String() string {
	switch f {
	case FaceNorth:
		return "north"
	case FaceSouth:
		return "south"
	case FaceEast:
		return "east"
	case FaceWest:
		return "west"
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	default:
		return "unknown"
	}
}
