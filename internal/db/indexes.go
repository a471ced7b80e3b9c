package db

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Indexes lists the secondary indexes per collection that the site's
// list and lookup queries rely on.
func Indexes() map[string][]mongo.IndexModel {
	createdDesc := mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}
	return map[string][]mongo.IndexModel{
		"charterInquiries": {
			createdDesc,
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		"lessonInquiries":      {createdDesc},
		"contactMessages":      {createdDesc},
		"charterRegistrations": {createdDesc, {Keys: bson.D{{Key: "inquiryId", Value: 1}}}},
		"images":               {{Keys: bson.D{{Key: "uploadedAt", Value: -1}}}},
		"blogPosts": {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "publishedAt", Value: -1}}},
		},
		"adminUsers": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"slideshowImages":     {{Keys: bson.D{{Key: "order", Value: 1}}}},
		"homeSlideshowImages": {{Keys: bson.D{{Key: "order", Value: 1}}}},
		"headshots":           {{Keys: bson.D{{Key: "addedAt", Value: -1}}}},
	}
}
