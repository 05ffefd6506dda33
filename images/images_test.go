package images

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pf-backoffice/models"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

func newTestUploader(t *testing.T) (*Uploader, *DiskStore, *storage.Store) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Options{
		Driver: "sqlite", URL: filepath.Join(t.TempDir(), "img.db"), ConnectRetries: 1,
	}, utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewStore(db)
	disk, err := NewDiskStore(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	u := NewUploader(disk, store.Images, store.ImageFolders, Options{
		Bucket:           "gala-home-property-images",
		Region:           "us-east-1",
		CloudfrontDomain: "cdn.example.net",
		Concurrency:      2,
	}, utils.NewNopLogger())
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return u, disk, store
}

func memFile(name, body string) File {
	return File{Name: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}}
}

func TestKeyAndURLs(t *testing.T) {
	u, _, _ := newTestUploader(t)

	key := u.Key("Dubai Marina", "View.JPG")
	assert.Regexp(t, regexp.MustCompile(`^dubai-marina/1700000000000-[0-9a-z]{9}\.jpg$`), key)
	assert.True(t, strings.HasSuffix(u.Key("JVC", "noext"), ".jpg"))

	assert.Equal(t, "https://gala-home-property-images.s3.us-east-1.amazonaws.com/a/b.png", u.S3URL("a/b.png"))
	assert.Equal(t, "https://cdn.example.net/a/b.png", u.CloudfrontURL("a/b.png"))
}

func TestUploadStoresBlobsAndFolderCount(t *testing.T) {
	u, disk, store := newTestUploader(t)
	ctx := context.Background()

	broken := File{Name: "broken.png", Open: func() (io.ReadCloser, error) {
		return nil, errors.New("unreadable")
	}}
	stored, err := u.Upload(ctx, "Dubai Marina", []File{
		memFile("one.jpg", "first"),
		broken,
		memFile("two.png", "second"),
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	for _, img := range stored {
		rc, err := disk.Open(img.Key)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, data)
		assert.Equal(t, "Dubai Marina", img.LocationName)
		assert.Equal(t, u.CloudfrontURL(img.Key), img.CloudfrontURL)
	}

	folder, err := store.ImageFolders.Get(ctx, "Dubai Marina")
	require.NoError(t, err)
	assert.Equal(t, 2, folder.ImageCount)
	assert.Equal(t, "dubai-marina/", folder.FolderPath)

	_, err = u.Upload(ctx, "Dubai Marina", []File{memFile("three.webp", "third")})
	require.NoError(t, err)
	folder, err = store.ImageFolders.Get(ctx, "Dubai Marina")
	require.NoError(t, err)
	assert.Equal(t, 3, folder.ImageCount)
}

func TestUploadValidation(t *testing.T) {
	u, _, _ := newTestUploader(t)
	ctx := context.Background()

	var ve *models.ValidationError
	_, err := u.Upload(ctx, "  ", []File{memFile("a.jpg", "x")})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "location", ve.Field)

	_, err = u.Upload(ctx, "JVC", nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "images", ve.Field)
}

func TestNextForLocationRotates(t *testing.T) {
	u, _, _ := newTestUploader(t)
	ctx := context.Background()

	_, err := u.NextForLocation(ctx, "Business Bay")
	assert.True(t, models.IsNotFound(err))

	// One file per call keeps the upload order deterministic.
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := u.Upload(ctx, "Business Bay", []File{memFile(name, name)})
		require.NoError(t, err)
	}
	imgs, err := u.ForLocation(ctx, "Business Bay")
	require.NoError(t, err)
	require.Len(t, imgs, 3)

	var got []string
	for range 4 {
		url, err := u.NextForLocation(ctx, "Business Bay")
		require.NoError(t, err)
		got = append(got, url)
	}
	assert.Equal(t, []string{
		imgs[0].CloudfrontURL, imgs[1].CloudfrontURL, imgs[2].CloudfrontURL, imgs[0].CloudfrontURL,
	}, got)
}

func TestDiskStoreRejectsEscapingKeys(t *testing.T) {
	disk, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.jpg", "/abs.jpg", ".."} {
		assert.Error(t, disk.Put(context.Background(), key, strings.NewReader("x")), key)
	}
	require.NoError(t, disk.Put(context.Background(), "ok/inside.jpg", strings.NewReader("x")))
}
