package packstream

// Marker bytes, grounded on structures/messages/init.go and
// encoding/encoding.go's constant block.
const (
	nilMarker   byte = 0xC0
	floatMarker byte = 0xC1
	falseMarker byte = 0xC2
	trueMarker  byte = 0xC3

	int8Marker  byte = 0xC8
	int16Marker byte = 0xC9
	int32Marker byte = 0xCA
	int64Marker byte = 0xCB

	tinyStringMarker byte = 0x80
	string8Marker    byte = 0xD0
	string16Marker   byte = 0xD1
	string32Marker   byte = 0xD2

	tinyListMarker byte = 0x90
	list8Marker    byte = 0xD4
	list16Marker   byte = 0xD5
	list32Marker   byte = 0xD6

	tinyMapMarker byte = 0xA0
	map8Marker    byte = 0xD8
	map16Marker   byte = 0xD9
	map32Marker   byte = 0xDA

	tinyStructMarker byte = 0xB0
	struct8Marker    byte = 0xDC
	struct16Marker   byte = 0xDD
)
