package domain

import "io"

type FileCommonMetadata struct {
	Filename    string
	SizeBytes   int64
	MimeType    string
	ImageWidth  *int
	ImageHeight *int
}

// PendingFile is an uploaded file that has not been written to the object store yet.
type PendingFile struct {
	FileCommonMetadata
	Data io.Reader
}

// ObjectLocation points at an object written to the object store.
type ObjectLocation struct {
	FullPath string
}
