// ABOUTME: Typed enumerations carried by HMI display capability documents
// ABOUTME: Each enum maps its wire names to values and back, with InvalidEnum for unknown names

package capabilities

import "strconv"

// InvalidEnum is stored in place of a string that names no known value.
const InvalidEnum = -1

type (
	WindowType     int
	TextFieldName  int
	CharacterSet   int
	ImageFieldName int
	FileType       int
	ImageType      int
	ButtonName     int
)

// enum is the name table of one enumeration. Values are the index of the
// name in the table.
type enum[T ~int] struct {
	names  []string
	values map[string]T
}

func newEnum[T ~int](names ...string) *enum[T] {
	e := &enum[T]{names: names, values: make(map[string]T, len(names))}
	for i, name := range names {
		e.values[name] = T(i)
	}
	return e
}

// parse returns the value named s, or InvalidEnum.
func (e *enum[T]) parse(s string) T {
	if v, ok := e.values[s]; ok {
		return v
	}
	return InvalidEnum
}

func (e *enum[T]) name(v T) string {
	if v >= 0 && int(v) < len(e.names) {
		return e.names[v]
	}
	return "INVALID_ENUM(" + strconv.Itoa(int(v)) + ")"
}

// convert rewrites *v from its string name to the typed value in place.
// Non-string values are rejected.
func (e *enum[T]) convert(v *any) bool {
	s, ok := (*v).(string)
	if !ok {
		return false
	}
	*v = e.parse(s)
	return true
}

var (
	windowTypes = newEnum[WindowType]("MAIN", "WIDGET")

	textFieldNames = newEnum[TextFieldName](
		"mainField1", "mainField2", "mainField3", "mainField4",
		"statusBar", "mediaClock", "mediaTrack", "templateTitle",
		"alertText1", "alertText2", "alertText3",
		"scrollableMessageBody", "initialInteractionText",
		"navigationText1", "navigationText2", "ETA", "totalDistance",
		"audioPassThruDisplayText1", "audioPassThruDisplayText2",
		"sliderHeader", "sliderFooter",
		"menuName", "secondaryText", "tertiaryText", "menuTitle",
		"locationName", "locationDescription", "addressLines", "phoneNumber",
		"timeToDestination", "turnText", "navigationText",
		"notificationText",
		"subtleAlertText1", "subtleAlertText2", "subtleAlertSoftButtonText",
		"menuCommandSecondaryText", "menuCommandTertiaryText",
		"menuSubMenuSecondaryText", "menuSubMenuTertiaryText",
	)

	characterSets = newEnum[CharacterSet](
		"TYPE2SET", "TYPE5SET", "CID1SET", "CID2SET",
		"ASCII", "ISO_8859_1", "UTF_8",
	)

	imageFieldNames = newEnum[ImageFieldName](
		"softButtonImage", "choiceImage", "choiceSecondaryImage",
		"vrHelpItem", "turnIcon", "menuIcon", "cmdIcon", "appIcon",
		"graphic", "secondaryGraphic",
		"showConstantTBTIcon", "showConstantTBTNextTurnIcon",
		"locationImage", "alertIcon", "subtleAlertIcon",
	)

	fileTypes = newEnum[FileType](
		"GRAPHIC_BMP", "GRAPHIC_JPEG", "GRAPHIC_PNG",
		"AUDIO_WAVE", "AUDIO_MP3", "AUDIO_AAC",
		"BINARY", "JSON",
	)

	imageTypes = newEnum[ImageType]("STATIC", "DYNAMIC")

	buttonNames = newEnum[ButtonName](
		"OK", "PLAY_PAUSE", "SEEKLEFT", "SEEKRIGHT", "TUNEUP", "TUNEDOWN",
		"PRESET_0", "PRESET_1", "PRESET_2", "PRESET_3", "PRESET_4",
		"PRESET_5", "PRESET_6", "PRESET_7", "PRESET_8", "PRESET_9",
		"CUSTOM_BUTTON", "SEARCH",
		"AC_MAX", "AC", "RECIRCULATE", "FAN_UP", "FAN_DOWN",
		"TEMP_UP", "TEMP_DOWN", "DEFROST_MAX", "DEFROST", "DEFROST_REAR",
		"UPPER_VENT", "LOWER_VENT",
		"VOLUME_UP", "VOLUME_DOWN", "EJECT", "SOURCE", "SHUFFLE", "REPEAT",
		"NAV_CENTER_LOCATION", "NAV_ZOOM_IN", "NAV_ZOOM_OUT",
		"NAV_PAN_UP", "NAV_PAN_UP_RIGHT", "NAV_PAN_RIGHT", "NAV_PAN_DOWN_RIGHT",
		"NAV_PAN_DOWN", "NAV_PAN_DOWN_LEFT", "NAV_PAN_LEFT", "NAV_PAN_UP_LEFT",
		"NAV_TILT_TOGGLE", "NAV_ROTATE_CLOCKWISE", "NAV_ROTATE_COUNTERCLOCKWISE",
		"NAV_HEADING_TOGGLE",
	)
)

func (v WindowType) String() string     { return windowTypes.name(v) }
func (v TextFieldName) String() string  { return textFieldNames.name(v) }
func (v CharacterSet) String() string   { return characterSets.name(v) }
func (v ImageFieldName) String() string { return imageFieldNames.name(v) }
func (v FileType) String() string       { return fileTypes.name(v) }
func (v ImageType) String() string      { return imageTypes.name(v) }
func (v ButtonName) String() string     { return buttonNames.name(v) }
