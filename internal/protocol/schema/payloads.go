package schema

import "github.com/danmuck/lifxctl/internal/protocol/bitfield"

// Type discriminants.
const (
	TypeGetService         uint16 = 2
	TypeStateService       uint16 = 3
	TypeGetHostInfo        uint16 = 12
	TypeStateHostInfo      uint16 = 13
	TypeGetHostFirmware    uint16 = 14
	TypeStateHostFirmware  uint16 = 15
	TypeGetWifiInfo        uint16 = 16
	TypeStateWifiInfo      uint16 = 17
	TypeGetWifiFirmware    uint16 = 18
	TypeStateWifiFirmware  uint16 = 19
	TypeSetPower           uint16 = 21
	TypeStatePower         uint16 = 22
	TypeGetLabel           uint16 = 23
	TypeSetLabel           uint16 = 24
	TypeStateLabel         uint16 = 25
	TypeGetVersion         uint16 = 32
	TypeStateVersion       uint16 = 33
	TypeGetInfo            uint16 = 34
	TypeStateInfo          uint16 = 35
	TypeAcknowledgement    uint16 = 45
	TypeGetLocation        uint16 = 48
	TypeStateLocation      uint16 = 50
	TypeGetGroup           uint16 = 51
	TypeStateGroup         uint16 = 53
	TypeEchoRequest        uint16 = 58
	TypeEchoResponse       uint16 = 59
	TypeLightGet           uint16 = 101
	TypeLightSetColor      uint16 = 102
	TypeLightSetWaveform   uint16 = 103
	TypeLightState         uint16 = 107
	TypeLightGetPower      uint16 = 116
	TypeLightSetPower      uint16 = 117
	TypeLightStatePower    uint16 = 118
	TypeLightGetInfrared   uint16 = 120
	TypeLightStateInfrared uint16 = 121
	TypeLightSetInfrared   uint16 = 122
	TypeGetColorZones      uint16 = 502
	TypeStateZone          uint16 = 503
)

// Waveform is the enum carried by light_set_waveform.
var Waveform = NewEnum(map[uint64]string{
	0: "saw",
	1: "sine",
	2: "half_sine",
	3: "triangle",
	4: "pulse",
})

// emptyRequests carry no payload. get_power shares 18 with
// get_wifi_firmware in the device documentation this table was taken from;
// only get_wifi_firmware is registered.
var emptyRequests = []Definition{
	{TypeID: TypeGetService, Name: "get_service"},
	{TypeID: TypeGetHostInfo, Name: "get_host_info"},
	{TypeID: TypeGetHostFirmware, Name: "get_host_firmware"},
	{TypeID: TypeGetWifiInfo, Name: "get_wifi_info"},
	{TypeID: TypeGetWifiFirmware, Name: "get_wifi_firmware"},
	{TypeID: TypeGetLabel, Name: "get_label"},
	{TypeID: TypeGetVersion, Name: "get_version"},
	{TypeID: TypeGetInfo, Name: "get_info"},
	{TypeID: TypeAcknowledgement, Name: "acknowledgement"},
	{TypeID: TypeGetLocation, Name: "get_location"},
	{TypeID: TypeGetGroup, Name: "get_group"},
	{TypeID: TypeLightGet, Name: "light_get"},
	{TypeID: TypeLightGetPower, Name: "light_get_power"},
	{TypeID: TypeLightGetInfrared, Name: "light_get_infrared"},
	{TypeID: TypeGetColorZones, Name: "multi_zone_get_color_zones"},
}

var payloads = []Definition{
	{TypeID: TypeStateService, Name: "state_service", Direction: Recv, Fields: fields(
		u8("service"), u32("port"),
	)},
	{TypeID: TypeStateHostInfo, Name: "state_host_info", Direction: Recv, Fields: fields(
		f32("signal"), u32("tx"), u32("rx"), reserved(16),
	)},
	{TypeID: TypeStateHostFirmware, Name: "state_host_firmware", Direction: Recv, Fields: fields(
		u64("build"), reserved(64), u32("version"),
	)},
	{TypeID: TypeStateWifiInfo, Name: "state_wifi_info", Direction: Recv, Fields: fields(
		f32("signal"), u32("tx"), u32("rx"), reserved(16),
	)},
	{TypeID: TypeStateWifiFirmware, Name: "state_wifi_firmware", Direction: Recv, Fields: fields(
		u64("build"), reserved(64), u32("version"),
	)},
	{TypeID: TypeSetPower, Name: "set_power", Direction: Send, Fields: fields(
		u16("level"),
	)},
	{TypeID: TypeStatePower, Name: "state_power", Direction: Recv, Fields: fields(
		u16("level"),
	)},
	{TypeID: TypeSetLabel, Name: "set_label", Direction: Send, Fields: fields(
		label("label"),
	)},
	{TypeID: TypeStateLabel, Name: "state_label", Direction: Recv, Fields: fields(
		label("label"),
	)},
	{TypeID: TypeStateVersion, Name: "state_version", Direction: Recv, Fields: fields(
		u32("vendor"), u32("product"), u32("version"),
	)},
	{TypeID: TypeStateInfo, Name: "state_info", Direction: Recv, Fields: fields(
		u64("time"), u64("uptime"), u64("downtime"),
	)},
	{TypeID: TypeStateLocation, Name: "state_location", Direction: Recv, Fields: fields(
		guid("location"), label("label"), u64("updated_at"),
	)},
	{TypeID: TypeStateGroup, Name: "state_group", Direction: Recv, Fields: fields(
		guid("group"), label("label"), u64("updated_at"),
	)},
	{TypeID: TypeEchoRequest, Name: "echo_request", Direction: Send, Fields: fields(
		raw("blob", 64),
	)},
	{TypeID: TypeEchoResponse, Name: "echo_response", Direction: Recv, Fields: fields(
		raw("blob", 64),
	)},
	{TypeID: TypeLightSetColor, Name: "light_set_color", Direction: Send, Fields: fields(
		reserved(8), hsbk(), u32("duration"),
	)},
	{TypeID: TypeLightSetWaveform, Name: "light_set_waveform", Direction: Send, Fields: fields(
		reserved(8), u8("transient"), hsbk(), u32("period"), f32("cycles"), i16("skew_ratio"),
		enum8("waveform", Waveform),
	)},
	{TypeID: TypeLightState, Name: "light_state", Direction: Recv, Fields: fields(
		hsbk(), reserved(16), u16("power"), label("label"), reserved(64),
	)},
	{TypeID: TypeLightSetPower, Name: "light_set_power", Direction: Send, Fields: fields(
		u16("level"), u32("duration"),
	)},
	{TypeID: TypeLightStatePower, Name: "light_state_power", Direction: Recv, Fields: fields(
		u16("level"),
	)},
	{TypeID: TypeLightStateInfrared, Name: "light_state_infrared", Direction: Recv, Fields: fields(
		u16("brightness"),
	)},
	{TypeID: TypeLightSetInfrared, Name: "light_set_infrared", Direction: Send, Fields: fields(
		u16("brightness"),
	)},
	{TypeID: TypeStateZone, Name: "state_zone", Direction: Recv, Fields: fields(
		u8("count"), u8("index"), hsbk(),
	)},
}

// Definitions returns the full static catalogue: empty requests first, then
// payload types.
func Definitions() []Definition {
	out := make([]Definition, 0, len(emptyRequests)+len(payloads))
	for _, def := range emptyRequests {
		def.Direction = Send
		out = append(out, def)
	}
	return append(out, payloads...)
}

func fields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func one(f bitfield.Field) []Field { return []Field{{Field: f}} }

func u8(name string) []Field    { return one(bitfield.Uint(name, 8)) }
func u16(name string) []Field   { return one(bitfield.Uint(name, 16)) }
func u32(name string) []Field   { return one(bitfield.Uint(name, 32)) }
func u64(name string) []Field   { return one(bitfield.Uint(name, 64)) }
func i16(name string) []Field   { return one(bitfield.Int(name, 16)) }
func f32(name string) []Field   { return one(bitfield.Float32(name)) }
func guid(name string) []Field  { return raw(name, 16) }
func reserved(bits int) []Field { return one(bitfield.Reserved(bits)) }

func raw(name string, n int) []Field { return one(bitfield.Bytes(name, n)) }

func label(name string) []Field {
	return []Field{{Field: bitfield.Bytes(name, LabelSize), Converter: LabelConverter{}}}
}

func enum8(name string, e *EnumConverter) []Field {
	return []Field{{Field: bitfield.Uint(name, 8), Converter: e}}
}

// hsbk expands the colour descriptor into its four flat fields.
func hsbk() []Field {
	return fields(u16("hue"), u16("saturation"), u16("brightness"), u16("kelvin"))
}
