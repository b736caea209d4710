// Package capabilities converts and caches HMI display capabilities.
//
// Display capabilities arrive as JSON with enumerations spelled as strings.
// ConvertDisplayCapability walks a decoded document and rewrites those
// strings in place to typed values (TextFieldName, CharacterSet,
// ImageFieldName, FileType, ImageType, ButtonName, WindowType). Names that
// match no value become InvalidEnum.
//
// The converter fails closed: a missing name or characterSet, a missing
// imageTypeSupported list on an image field, a non-string enum or an array
// that is not an array makes it report false. Optional arrays that are
// absent are skipped.
//
// Cache stores the raw JSON per interface name through the dbms storage
// layer and keeps a TTL and size bounded memo of converted documents.
package capabilities
