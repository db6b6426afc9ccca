package reviews

import (
	"ratemyreel/proj/internal/domain/fields"
	"ratemyreel/proj/internal/domain/models"
)

// Average returns the mean rating rounded half-up to one decimal, or 0 for no reviews.
// Ratings are assumed to be in range.
func Average(reviews []models.Review) float64 {
	count := len(reviews)
	if count == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	// floor(sum*10/count + 0.5) in integers
	tenths := (sum*20 + count) / (2 * count)
	return float64(tenths) / 10
}

// Distribution buckets reviews by exact rating. Index 0 holds rating 10, index 9 rating 1.
func Distribution(reviews []models.Review) [10]models.RatingBucket {
	var counts [fields.MaxRating + 1]int
	for _, r := range reviews {
		if r.Rating >= fields.MinRating && r.Rating <= fields.MaxRating {
			counts[r.Rating]++
		}
	}
	total := len(reviews)
	var buckets [10]models.RatingBucket
	for i := range buckets {
		rating := fields.MaxRating - i
		bucket := models.RatingBucket{Rating: rating, Count: counts[rating]}
		if total > 0 {
			bucket.Percentage = float64(bucket.Count) / float64(total) * 100
		}
		buckets[i] = bucket
	}
	return buckets
}

func Aggregate(reviews []models.Review) models.AggregateStats {
	return models.AggregateStats{
		AverageRating: Average(reviews),
		ReviewCount:   len(reviews),
		Distribution:  Distribution(reviews),
	}
}
