package service

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/yourorg/videotube/internal/utils"
)

// MediaStore accepts binary objects and returns a hosted URL.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type MediaService struct {
	store         MediaStore
	log           *zap.SugaredLogger
	uploadTimeout time.Duration
}

func NewMediaService(store MediaStore, log *zap.SugaredLogger, uploadTimeout time.Duration) *MediaService {
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &MediaService{store: store, log: log, uploadTimeout: uploadTimeout}
}

// UploadImage stores the image under the owner's prefix and returns the
// hosted URL. A thumbnail is generated and uploaded best-effort.
func (s *MediaService) UploadImage(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error) {
	if !utils.IsAllowedImageType(contentType) {
		return "", utils.ErrBadRequest("unsupported image type")
	}
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	key := ownerID + "/" + utils.NewID() + "_" + filename
	url, err := s.store.Upload(ctx, key, contentType, data)
	if err != nil {
		return "", err
	}

	if thumb, terr := generateThumbnail(data); terr == nil {
		if _, terr = s.store.Upload(ctx, key+"_thumb.jpg", "image/jpeg", thumb); terr != nil {
			s.log.Warnw("thumbnail upload failed", "key", key, "error", terr)
		}
	}
	return url, nil
}

func generateThumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
