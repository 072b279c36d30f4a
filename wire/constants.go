package wire

// Tag identifies how the remainder of a response is interpreted.
type Tag string

// Response type tags
const (
	TagString Tag = "string"
	TagError  Tag = "error"
	TagBool   Tag = "bool"
	TagInt    Tag = "int"
	TagFloat  Tag = "float"
	TagNull   Tag = "null"
	TagU8V    Tag = "u8v"
	TagS8V    Tag = "s8v"
	TagU16V   Tag = "u16v"
	TagS16V   Tag = "s16v"
	TagU32V   Tag = "u32v"
	TagS32V   Tag = "s32v"
	TagC64V   Tag = "c64v"
	TagList   Tag = "list"
)

// Framing
const (
	// LengthPrefixSize is the size of the little-endian length header of every message.
	LengthPrefixSize = 8

	// DefaultMaxMessageSize bounds the size of a response a reader will allocate.
	DefaultMaxMessageSize = 256 << 20

	// CommandTerminator is appended to every textual command.
	CommandTerminator byte = 0

	// PipeSeparator joins the sub-commands of a pipeline.
	PipeSeparator = " |> "
)
