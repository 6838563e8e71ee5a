package model

// Media types callers must supply with a media reference. URL sniffing is a
// fallback only and logs a warning when it disagrees with the caller.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Upload session states for the chunked video path.
type UploadState string

const (
	UploadStateInitiated  UploadState = "initiated"
	UploadStateAppending  UploadState = "appending"
	UploadStateFinalizing UploadState = "finalizing"
	UploadStateProcessing UploadState = "processing"
	UploadStateReady      UploadState = "ready"
	UploadStateFailed     UploadState = "failed"
)

// UploadSession tracks one in-flight chunked upload. It lives only for the
// duration of the call; a crash mid-upload means the caller restarts at INIT.
type UploadSession struct {
	MediaID    string
	TotalBytes int64
	ChunkSent  int
	State      UploadState
}
