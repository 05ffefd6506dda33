package models

import "time"

// StoredImage is an uploaded property image.
type StoredImage struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LocationName  string    `json:"locationName"`
	Key           string    `json:"key"`
	S3URL         string    `json:"s3Url"`
	CloudfrontURL string    `json:"cloudfrontUrl"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// ImageFolder tracks the images of one location and the rotation cursor used
// when picking an image for a new listing.
type ImageFolder struct {
	LocationName  string `json:"locationName"`
	LocationID    *int64 `json:"locationId,omitempty"`
	FolderPath    string `json:"folderPath"`
	ImageCount    int    `json:"imageCount"`
	LastUsedIndex int    `json:"lastUsedIndex"`
}
