// ABOUTME: Converts HMI display capability documents from string enums to typed enum values
// ABOUTME: Walks the document in place and fails closed on missing required keys or bad shapes

package capabilities

// Document is a decoded capability message: JSON objects as map[string]any,
// arrays as []any.
type Document = map[string]any

// Document keys.
const (
	keyWindowTypeSupported = "windowTypeSupported"
	keyWindowCapabilities  = "windowCapabilities"
	keyType                = "type"
	keyTextFields          = "textFields"
	keyImageFields         = "imageFields"
	keyImageTypeSupported  = "imageTypeSupported"
	keyButtonCapabilities  = "buttonCapabilities"
	keyName                = "name"
	keyCharacterSet        = "characterSet"
)

type required bool

const (
	optional  required = false
	mandatory required = true
)

// ConvertDisplayCapability rewrites every enum string in a display
// capability to its typed value. It reports false when the document does not
// have the expected shape; the document may be partially converted then.
//
// A string that names no known value becomes InvalidEnum and does not fail
// the conversion.
func ConvertDisplayCapability(display Document) bool {
	if !convertArray(display, keyWindowTypeSupported, convertWindowTypeCapabilities, optional) {
		return false
	}
	return convertArray(display, keyWindowCapabilities, ConvertWindowCapability, optional)
}

func convertWindowTypeCapabilities(windowType Document) bool {
	return convertKey(windowType, keyType, windowTypes.convert)
}

// ConvertWindowCapability converts the text fields, image fields, image types
// and button capabilities of one window. Absent arrays are skipped.
func ConvertWindowCapability(window Document) bool {
	if !convertArray(window, keyTextFields, convertTextField, optional) {
		return false
	}
	if !convertArray(window, keyImageFields, convertImageField, optional) {
		return false
	}
	if !convertValues(window, keyImageTypeSupported, imageTypes.convert, optional) {
		return false
	}
	return convertArray(window, keyButtonCapabilities, convertButtonCapabilities, optional)
}

func convertTextField(field Document) bool {
	if !convertKey(field, keyName, textFieldNames.convert) {
		return false
	}
	return convertKey(field, keyCharacterSet, characterSets.convert)
}

func convertImageField(field Document) bool {
	if !convertKey(field, keyName, imageFieldNames.convert) {
		return false
	}
	return convertValues(field, keyImageTypeSupported, fileTypes.convert, mandatory)
}

func convertButtonCapabilities(button Document) bool {
	return convertKey(button, keyName, buttonNames.convert)
}

// convertKey converts obj[key] in place. A missing key fails.
func convertKey(obj Document, key string, conv func(*any) bool) bool {
	v, ok := obj[key]
	if !ok {
		return false
	}
	if !conv(&v) {
		return false
	}
	obj[key] = v
	return true
}

// convertArray runs parse on every object of the array at obj[key].
func convertArray(obj Document, key string, parse func(Document) bool, req required) bool {
	return eachItem(obj, key, req, func(item *any) bool {
		doc, ok := (*item).(map[string]any)
		if !ok {
			return false
		}
		return parse(doc)
	})
}

// convertValues converts every scalar of the array at obj[key] in place.
func convertValues(obj Document, key string, conv func(*any) bool, req required) bool {
	return eachItem(obj, key, req, conv)
}

// eachItem applies fn to every element of the array at obj[key]. A missing
// key passes unless the array is mandatory; a value that is not an array
// always fails.
func eachItem(obj Document, key string, req required, fn func(*any) bool) bool {
	v, ok := obj[key]
	if !ok {
		return req == optional
	}
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for i := range items {
		if !fn(&items[i]) {
			return false
		}
	}
	return true
}
