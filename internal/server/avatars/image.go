// Package avatars normalizes uploaded profile images and stores them either in
// PostgreSQL or in an S3-compatible bucket.
package avatars

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/taskapp/internal/common"
)

// Size is the edge length of the stored square avatar, in pixels.
const Size = 250

var allowedName = regexp.MustCompile(`\.(jpg|jpeg|png)$`)

// CheckFilename accepts only .jpg, .jpeg and .png uploads.
func CheckFilename(name string) error {
	if !allowedName.MatchString(name) {
		return common.NewValidationError(common.FieldError{
			Field:   "avatar",
			Message: "Only JPG, JPEG and PNG files are allowed",
		})
	}
	return nil
}

// Resize decodes a JPEG or PNG image, crops it to a Size x Size square and
// re-encodes it as PNG. Undecodable input is a validation error.
func Resize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.NewValidationError(common.FieldError{Field: "avatar", Message: "unable to decode image"})
	}

	thumb := imaging.Fill(img, Size, Size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
