package enums

import "fmt"

// ImageType is the set of product image formats accepted on upload.
type ImageType string

const (
	ImageTypePNG  ImageType = "image/png"
	ImageTypeJPEG ImageType = "image/jpeg"
)

var validImageTypes = []ImageType{
	ImageTypePNG,
	ImageTypeJPEG,
}

func (i ImageType) String() string {
	return string(i)
}

// Extension returns the file extension stored alongside the blob key.
func (i ImageType) Extension() string {
	if i == ImageTypePNG {
		return ".png"
	}
	return ".jpg"
}

func (i ImageType) IsValid() bool {
	for _, candidate := range validImageTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

func ParseImageType(value string) (ImageType, error) {
	for _, candidate := range validImageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid image type %q", value)
}
