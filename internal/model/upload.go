package model

// UploadResult is a successful upload. Location is the results page the
// server redirected to, if any.
type UploadResult struct {
	Location string
	FileName string
	Size     int64
}
