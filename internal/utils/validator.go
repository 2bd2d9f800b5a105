package utils

import (
	"errors"
	"mime/multipart"
)

const maxImageSize = 10 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

func ValidateImageHeader(h *multipart.FileHeader) error {
	if h.Size == 0 || h.Size > maxImageSize {
		return errors.New("file size not allowed")
	}
	if ct := h.Header.Get("Content-Type"); ct != "" && !allowedImageTypes[ct] {
		return errors.New("invalid content type")
	}
	return nil
}

func IsAllowedImageType(contentType string) bool {
	return allowedImageTypes[contentType]
}
