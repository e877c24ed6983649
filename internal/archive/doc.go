// Package archive installs downloaded bundle archives.
//
// Installation extracts the archive into a scratch directory under the temp
// root, flattens a single wrapping directory if present, and moves the result
// to <tree root>/<id>. It runs once per tree from independent extractions, so
// hot and persistent copies never share inodes.
//
// Containers are sniffed from content: zip is the contract, tar, tar.gz and
// tar.zst are also accepted.
//
// Errors wrap ErrExtraction, ErrStructure, ErrDirectoryCreate or
// ErrDirectoryDelete; test with errors.Is.
package archive
