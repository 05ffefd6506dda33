package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pf-backoffice/metrics"
	"pf-backoffice/models"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// File is one image handed to Upload.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Options configures the public URLs of stored images.
type Options struct {
	Bucket           string
	Region           string
	CloudfrontDomain string
	Concurrency      int
}

// Uploader writes images to a BlobStore and records them per location.
type Uploader struct {
	blobs   BlobStore
	images  storage.Repository[models.StoredImage]
	folders storage.Repository[models.ImageFolder]
	opts    Options
	logger  *utils.Logger
	now     func() time.Time
}

// NewUploader creates an Uploader.
func NewUploader(blobs BlobStore, images storage.Repository[models.StoredImage], folders storage.Repository[models.ImageFolder], opts Options, logger *utils.Logger) *Uploader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Uploader{
		blobs:   blobs,
		images:  images,
		folders: folders,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Key returns the storage key for a file uploaded now for location.
func (u *Uploader) Key(location, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d-%s.%s", utils.Slugify(location), u.now().UnixMilli(), utils.RandomToken(9), ext)
}

// S3URL returns the bucket URL of key.
func (u *Uploader) S3URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.opts.Bucket, u.opts.Region, key)
}

// CloudfrontURL returns the CDN URL of key.
func (u *Uploader) CloudfrontURL(key string) string {
	return fmt.Sprintf("https://%s/%s", u.opts.CloudfrontDomain, key)
}

// Upload stores files for location and returns the ones that succeeded.
// Failed files are logged and skipped.
func (u *Uploader) Upload(ctx context.Context, location string, files []File) ([]*models.StoredImage, error) {
	location = strings.TrimSpace(location)
	if location == "" || utils.Slugify(location) == "" {
		return nil, models.NewValidationError("location", "location is required")
	}
	if len(files) == 0 {
		return nil, models.NewValidationError("images", "no files uploaded")
	}

	var (
		mu     sync.Mutex
		stored = make([]*models.StoredImage, 0, len(files))
	)
	pool := utils.NewWorkerPool(u.opts.Concurrency, 0)
	for _, f := range files {
		pool.Submit(func() {
			img, err := u.store(ctx, location, f)
			if err != nil {
				metrics.UploadedImages.WithLabelValues("failed").Inc()
				u.logger.Warn("[images] skipping %s: %v", f.Name, err)
				return
			}
			metrics.UploadedImages.WithLabelValues("stored").Inc()
			mu.Lock()
			stored = append(stored, img)
			mu.Unlock()
		})
	}
	pool.Wait()

	if len(stored) > 0 {
		if err := u.addToFolder(ctx, location, len(stored)); err != nil {
			return stored, err
		}
	}
	u.logger.Info("[images] stored %d/%d images for %s", len(stored), len(files), location)
	return stored, nil
}

func (u *Uploader) store(ctx context.Context, location string, f File) (*models.StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	key := u.Key(location, f.Name)
	if err := u.blobs.Put(ctx, key, rc); err != nil {
		return nil, err
	}

	img := &models.StoredImage{
		ID:            uuid.NewString(),
		Name:          f.Name,
		LocationName:  location,
		Key:           key,
		S3URL:         u.S3URL(key),
		CloudfrontURL: u.CloudfrontURL(key),
		UploadedAt:    u.now().UTC(),
	}
	if err := u.images.Insert(ctx, img); err != nil {
		return nil, fmt.Errorf("images: record %s: %w", key, err)
	}
	return img, nil
}

func (u *Uploader) addToFolder(ctx context.Context, location string, n int) error {
	_, err := u.folders.Update(ctx, location, func(f *models.ImageFolder) error {
		f.ImageCount += n
		return nil
	})
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	err = u.folders.Insert(ctx, &models.ImageFolder{
		LocationName: location,
		FolderPath:   utils.Slugify(location) + "/",
		ImageCount:   n,
	})
	if errors.Is(err, storage.ErrConflict) {
		return u.addToFolder(ctx, location, n)
	}
	return err
}

// Folders returns every location folder.
func (u *Uploader) Folders(ctx context.Context) ([]*models.ImageFolder, error) {
	return u.folders.List(ctx)
}

// ForLocation returns the images of location in upload order.
func (u *Uploader) ForLocation(ctx context.Context, location string) ([]*models.StoredImage, error) {
	location = strings.TrimSpace(location)
	return u.images.Find(ctx, func(i *models.StoredImage) bool { return i.LocationName == location })
}

// NextForLocation returns the CDN URL of the next image of location, cycling
// through its images in upload order.
func (u *Uploader) NextForLocation(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	imgs, err := u.ForLocation(ctx, location)
	if err != nil {
		return "", err
	}
	if len(imgs) == 0 {
		return "", &models.NotFoundError{Resource: "images for location", Key: location}
	}

	var pick int
	_, err = u.folders.Update(ctx, location, func(f *models.ImageFolder) error {
		pick = f.LastUsedIndex % len(imgs)
		f.LastUsedIndex = (pick + 1) % len(imgs)
		f.ImageCount = len(imgs)
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		err = u.folders.Put(ctx, &models.ImageFolder{
			LocationName:  location,
			FolderPath:    utils.Slugify(location) + "/",
			ImageCount:    len(imgs),
			LastUsedIndex: 1 % len(imgs),
		})
	}
	if err != nil {
		return "", fmt.Errorf("images: rotate %s: %w", location, err)
	}
	return imgs[pick].CloudfrontURL, nil
}
