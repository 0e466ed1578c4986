package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogify/internal/config"
	"blogify/internal/models"
	"blogify/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "uploads"
	DefaultImageMaxUploadSizeMB = 10
	CoverMaxSize                = 1440
	AvatarSize                  = 256
	JPEGQuality                 = 82
	WebPQuality                 = 70
)

// ImageKind selects the processing applied to an upload.
type ImageKind string

const (
	ImageKindCover  ImageKind = "cover"
	ImageKindAvatar ImageKind = "avatar"
)

type UploadImageInput struct {
	UserID      string
	Kind        ImageKind
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates, normalizes and stores uploaded images on local disk.
type ImageService struct {
	uploadDir          string
	publicBaseURL      string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	baseURL := ""

	if cfg != nil {
		if cfg.UploadDir != "" {
			uploadDir = cfg.UploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		baseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	}

	return &ImageService{
		uploadDir:          uploadDir,
		publicBaseURL:      baseURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadDir is the directory served under /uploads.
func (s *ImageService) UploadDir() string { return s.uploadDir }

// Upload decodes the image, fits it to the kind's bounds, and writes a JPEG master plus a WebP variant.
// Identical uploads by the same user resolve to the same stored files.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*models.PostImage, error) {
	_, end := observability.StartServiceSpan(ctx, "ImageService", "Upload")
	start := time.Now()
	img, err := s.upload(in)
	end(err)
	observability.ImageProcessingDuration.WithLabelValues(string(in.Kind)).Observe(time.Since(start).Seconds())
	return img, err
}

func (s *ImageService) upload(in UploadImageInput) (*models.PostImage, error) {
	if in.UserID == "" {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	var master image.Image
	switch in.Kind {
	case ImageKindAvatar:
		master = resizeToFit(cropSquare(decoded), AvatarSize, AvatarSize)
	default:
		master = resizeToFit(decoded, CoverMaxSize, CoverMaxSize)
	}

	jpg, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	wp, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hash := buildDeterministicImageHash(in.UserID, jpg)
	jpgRel := filepath.ToSlash(filepath.Join(hash, "master.jpg"))
	webpRel := filepath.ToSlash(filepath.Join(hash, "master.webp"))

	if err := writeBytesToFile(filepath.Join(s.uploadDir, jpgRel), jpg); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(filepath.Join(s.uploadDir, webpRel), wp); err != nil {
		_ = os.Remove(filepath.Join(s.uploadDir, jpgRel))
		return nil, models.NewInternalError(err)
	}

	b := master.Bounds()
	return &models.PostImage{
		URL:    s.publicBaseURL + "/uploads/" + jpgRel,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: "jpeg",
	}, nil
}

func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	xdraw.Draw(dst, dst.Bounds(), src, image.Pt(x, y), xdraw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func buildDeterministicImageHash(userID string, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
