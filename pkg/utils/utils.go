package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
)

var (
	ErrNoFile            = errors.New("no file uploaded")
	ErrFileTooLarge      = errors.New("file size exceeds limit")
	ErrNotAnImage        = errors.New("uploaded file is not an image")
	ErrUnsupportedFormat = errors.New("image format is not supported for inference")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadImageFile(file *multipart.FileHeader) ([]byte, error)
	ValidateImageBytes(data []byte) error
	PrepareImageForInference(imageData []byte, maxWidth, maxHeight int, quality int) ([]byte, error)
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	return &utils{
		maxFileSize: 5 * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadImageFile(file *multipart.FileHeader) ([]byte, error) {
	if err := u.ValidateImageFile(file); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(src)
}

// ValidateImageBytes sniffs raw bytes, used for frames that arrive without multipart headers.
func (u *utils) ValidateImageBytes(data []byte) error {
	if len(data) == 0 {
		return ErrNoFile
	}
	if int64(len(data)) > u.maxFileSize {
		return ErrFileTooLarge
	}
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png":
		return nil
	default:
		return ErrNotAnImage
	}
}

// PrepareImageForInference downsizes images above the bounds and re-encodes them as JPEG.
// JPEG input that already fits is returned untouched.
func (u *utils) PrepareImageForInference(imageData []byte, maxWidth, maxHeight int, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, ErrUnsupportedFormat
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	newWidth, newHeight := origWidth, origHeight
	if origWidth > maxWidth || origHeight > maxHeight {
		ratio := float64(origWidth) / float64(origHeight)

		if float64(maxWidth)/float64(maxHeight) < ratio {
			newWidth = maxWidth
			newHeight = int(float64(maxWidth) / ratio)
		} else {
			newHeight = maxHeight
			newWidth = int(float64(maxHeight) * ratio)
		}
	}

	resized := newWidth != origWidth || newHeight != origHeight
	if !resized && format == "jpeg" {
		return imageData, nil
	}

	out := img
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
