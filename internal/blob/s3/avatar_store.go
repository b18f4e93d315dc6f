package s3blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/priceduel/priceduel/internal/domain"
)

// AvatarStore implements domain.AvatarStore on an S3-compatible bucket.
// Avatars are keyed by user ID, so a re-upload replaces the previous image
// at the same URL.
type AvatarStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ domain.AvatarStore = (*AvatarStore)(nil)

// NewAvatarStore creates an AvatarStore. publicBaseURL is the prefix of
// publicly readable object URLs; the object key is appended to it.
func NewAvatarStore(c *Client, publicBaseURL string) *AvatarStore {
	return &AvatarStore{
		client:  c.S3(),
		bucket:  c.Bucket(),
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func avatarKey(userID int64) string {
	return fmt.Sprintf("avatars/%d", userID)
}

// Put uploads the avatar and returns its public URL.
func (s *AvatarStore) Put(ctx context.Context, userID int64, body io.Reader, size int64, contentType string) (string, error) {
	key := avatarKey(userID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=300"),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: put avatar %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}
