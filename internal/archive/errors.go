package archive

import "errors"

var (
	// ErrExtraction means the archive could not be decompressed
	ErrExtraction = errors.New("the file cannot be unzipped")
	// ErrStructure means the unpacked contents could not be moved into place
	ErrStructure = errors.New("the unpacked bundle cannot be flattened")
	// ErrDirectoryCreate means a destination directory could not be created
	ErrDirectoryCreate = errors.New("the folder cannot be created")
	// ErrDirectoryDelete means a directory could not be removed
	ErrDirectoryDelete = errors.New("the folder cannot be deleted")
	// ErrUnsupportedFormat means the archive container was not recognized
	ErrUnsupportedFormat = errors.New("unsupported archive format")
)
