package storage

import "pf-backoffice/models"

// Collection names.
const (
	Listings       = "listings"
	Leads          = "leads"
	ImageFolders   = "image_folders"
	Images         = "images"
	UserSettings   = "user_settings"
	Templates      = "templates"
	ScraperResults = "scraper_results"
)

// Store groups the typed collections of the back office.
type Store struct {
	DB *DB

	Listings     *Collection[models.Listing]
	Leads        *Collection[models.Lead]
	ImageFolders *Collection[models.ImageFolder]
	Images       *Collection[models.StoredImage]
	Settings     *Collection[models.Credential]
	Templates    *Collection[models.Template]
	Master       *Collection[models.MasterEntry]
}

// NewStore binds every collection to db.
func NewStore(db *DB) *Store {
	return &Store{
		DB: db,
		Listings: NewCollection(db, Listings,
			func(l *models.Listing) string { return l.ID },
			func(l *models.Listing) string { return l.Reference }),
		Leads: NewCollection(db, Leads,
			func(l *models.Lead) string { return l.ID }, nil),
		ImageFolders: NewCollection(db, ImageFolders,
			func(f *models.ImageFolder) string { return f.LocationName }, nil),
		Images: NewCollection(db, Images,
			func(i *models.StoredImage) string { return i.ID },
			func(i *models.StoredImage) string { return i.Key }),
		Settings: NewCollection(db, UserSettings,
			func(c *models.Credential) string { return c.AccountID }, nil),
		Templates: NewCollection(db, Templates,
			func(t *models.Template) string { return t.ID }, nil),
		Master: NewCollection(db, ScraperResults,
			func(e *models.MasterEntry) string { return e.EntryID }, nil),
	}
}
