package uploads

import (
	"context"
	"errors"
	"strings"

	"wheelhub-backend/internal/application/listings"
)

// ListingImagesBucket is the default bucket for listing images.
const ListingImagesBucket = "listing-images"

var ErrFileNameRequired = errors.New("file_name is required")

// Signer hands out direct-upload URLs for a key.
type Signer interface {
	SignUpload(ctx context.Context, key string) (uploadURL, publicURL string, err error)
}

// Service issues signed upload URLs so clients can upload images before submitting a listing.
type Service struct {
	Signer Signer
}

// UploadResult is returned to the client: PUT/POST the file to UploadURL, then submit PublicURL.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// GetSignedUploadURL signs a key unique to the user and file name.
func (s *Service) GetSignedUploadURL(ctx context.Context, userID, fileName string) (*UploadResult, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, ErrFileNameRequired
	}
	path := listings.UploadKey(userID, fileName)

	signedURL, publicURL, err := s.Signer.SignUpload(ctx, path)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: publicURL,
		Path:      path,
	}, nil
}
