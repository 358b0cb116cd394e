// Package filetype classifies library files into the variant kinds the
// catalog engine understands: JPEG variants, RAW variants, and the JSON
// sidecar that carries user-edited properties.
//
// A logical photo is a group of files sharing a base name within one
// directory, for example IMG_0001.json + IMG_0001.jpg + IMG_0001.cr2.
package filetype
