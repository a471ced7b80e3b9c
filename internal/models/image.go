package models

import "time"

// Image is an entry in the admin image library. Key is set when the file
// lives in the site bucket and is cleared for images added by external URL.
type Image struct {
	Base       `bson:",inline"`
	URL        string    `bson:"url" json:"url"`
	Name       string    `bson:"name" json:"name"`
	Key        string    `bson:"key,omitempty" json:"key,omitempty"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
	UploadedBy string    `bson:"uploadedBy" json:"uploadedBy"`
}

// Gallery names a public image collection.
type Gallery string

const (
	GallerySlideshow     Gallery = "slideshow"
	GalleryHomeSlideshow Gallery = "home-slideshow"
	GalleryHeadshots     Gallery = "headshots"
)

var galleryCollections = map[Gallery]string{
	GallerySlideshow:     "slideshowImages",
	GalleryHomeSlideshow: "homeSlideshowImages",
	GalleryHeadshots:     "headshots",
}

// Collection returns the backing collection name, or "" for an unknown gallery.
func (g Gallery) Collection() string {
	return galleryCollections[g]
}

// GalleryEntry is one image shown in a gallery, ordered by Order.
type GalleryEntry struct {
	Base    `bson:",inline"`
	URL     string    `bson:"url" json:"url"`
	Caption string    `bson:"caption,omitempty" json:"caption,omitempty"`
	Order   int       `bson:"order" json:"order"`
	AddedAt time.Time `bson:"addedAt" json:"addedAt"`
}
