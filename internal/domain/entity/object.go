package entity

// ObjectInfo is the blob-store head metadata for a stored object.
type ObjectInfo struct {
	ContentType string
	Size        int64
}
