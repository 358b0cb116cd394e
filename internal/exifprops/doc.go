// Package exifprops derives implicit image properties from the files on
// disk: stat fields for every file, plus EXIF header fields where the
// format carries them. Extraction results can be cached by stable file
// id through the Cache interface.
package exifprops
