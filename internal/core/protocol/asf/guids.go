// If you are AI: This file holds the ASF object GUIDs and the dispatch table built from them.

package asf

import "mmsgo/internal/core/protocol/wire"

// ObjectKind identifies an ASF object the header walker knows how to handle.
type ObjectKind int

const (
	ObjectUnknown ObjectKind = iota
	ObjectHeader
	ObjectData
	ObjectFileProperties
	ObjectStreamProperties
	ObjectHeaderExtension
	ObjectExtendedStreamProperties
	ObjectStreamBitrateProperties
)

var (
	GUIDHeader                   = wire.MustParseGUID("75B22630-668E-11CF-A6D9-00AA0062CE6C")
	GUIDData                     = wire.MustParseGUID("75B22636-668E-11CF-A6D9-00AA0062CE6C")
	GUIDFileProperties           = wire.MustParseGUID("8CABDCA1-A947-11CF-8EE4-00C00C205365")
	GUIDStreamProperties         = wire.MustParseGUID("B7DC0791-A9B7-11CF-8EE6-00C00C205365")
	GUIDHeaderExtension          = wire.MustParseGUID("5FBF03B5-A92E-11CF-8EE3-00C00C205365")
	GUIDExtendedStreamProperties = wire.MustParseGUID("14E6A5CB-C672-4332-8399-A96952065B5A")
	GUIDStreamBitrateProperties  = wire.MustParseGUID("7BF875CE-468D-11D1-8D82-006097C9A2B2")

	GUIDAudioMedia = wire.MustParseGUID("F8699E40-5B4D-11CF-A8FD-00805F5C442B")
	GUIDVideoMedia = wire.MustParseGUID("BC19EFC0-5B4D-11CF-A8FD-00805F5C442B")
)

// objectKinds maps object GUIDs to the walker's dispatch kinds.
var objectKinds = map[wire.GUID]ObjectKind{
	GUIDHeader:                   ObjectHeader,
	GUIDData:                     ObjectData,
	GUIDFileProperties:           ObjectFileProperties,
	GUIDStreamProperties:         ObjectStreamProperties,
	GUIDHeaderExtension:          ObjectHeaderExtension,
	GUIDExtendedStreamProperties: ObjectExtendedStreamProperties,
	GUIDStreamBitrateProperties:  ObjectStreamBitrateProperties,
}

// streamCategories maps stream-type GUIDs to categories.
var streamCategories = map[wire.GUID]Category{
	GUIDAudioMedia: CategoryAudio,
	GUIDVideoMedia: CategoryVideo,
}

// KindOf returns the dispatch kind for an object GUID.
func KindOf(g wire.GUID) ObjectKind {
	return objectKinds[g]
}

// String returns a short name for logging.
func (k ObjectKind) String() string {
	switch k {
	case ObjectHeader:
		return "header"
	case ObjectData:
		return "data"
	case ObjectFileProperties:
		return "file_properties"
	case ObjectStreamProperties:
		return "stream_properties"
	case ObjectHeaderExtension:
		return "header_extension"
	case ObjectExtendedStreamProperties:
		return "extended_stream_properties"
	case ObjectStreamBitrateProperties:
		return "stream_bitrate_properties"
	default:
		return "unknown"
	}
}
