package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	BucketPhotos   = "photos"
	BucketIncoming = "incoming"
)

var photoContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func EnsureStoragePath(base string, bucket string) (string, error) {
	path := filepath.Join(base, bucket)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

type PhotoAsset struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	Sha256      string     `json:"sha256"`
	Usage       PhotoUsage `json:"usage"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PhotoIntake spools uploads to disk and moves them into place. The stored
// type and extension come from the leading bytes, never from the header
// alone. A file whose charge against the monthly budget fails is removed.
type PhotoIntake struct {
	Engine   *Engine
	BasePath string
	MaxBytes int64
	Log      *zap.Logger
}

func (p PhotoIntake) Save(ctx context.Context, actor Actor, contentType string, body io.Reader) (PhotoAsset, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := photoContentTypes[contentType]; !ok {
		return PhotoAsset{}, ErrValidation("Unsupported image type")
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return PhotoAsset{}, p.internal(err)
	}
	if n == 0 {
		return PhotoAsset{}, ErrValidation("Upload is empty")
	}
	head = head[:n]
	contentType = http.DetectContentType(head)
	ext, ok := photoContentTypes[contentType]
	if !ok {
		return PhotoAsset{}, ErrValidation("Unsupported image type")
	}
	body = io.MultiReader(bytes.NewReader(head), body)

	incoming, err := EnsureStoragePath(p.BasePath, BucketIncoming)
	if err != nil {
		return PhotoAsset{}, p.internal(err)
	}
	photos, err := EnsureStoragePath(p.BasePath, BucketPhotos)
	if err != nil {
		return PhotoAsset{}, p.internal(err)
	}
	assetID := uuid.NewString()
	tempPath := filepath.Join(incoming, assetID)
	file, err := os.Create(tempPath)
	if err != nil {
		return PhotoAsset{}, p.internal(err)
	}
	defer os.Remove(tempPath)

	if p.MaxBytes > 0 {
		body = io.LimitReader(body, p.MaxBytes+1)
	}
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(file, hasher), body)
	_ = file.Close()
	if err != nil {
		return PhotoAsset{}, p.internal(err)
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return PhotoAsset{}, ErrValidation("Upload is too large")
	}

	storageKey := assetID + ext
	finalPath := filepath.Join(photos, storageKey)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return PhotoAsset{}, p.internal(err)
	}
	usage, err := p.Engine.ConsumePhotoBytes(ctx, actor, ConsumePhotoBytesRequest{Bytes: size})
	if err != nil {
		if rmErr := os.Remove(finalPath); rmErr != nil && p.Log != nil {
			p.Log.Warn("photo cleanup failed", zap.String("path", finalPath), zap.Error(rmErr))
		}
		return PhotoAsset{}, err
	}
	return PhotoAsset{
		ID:          assetID,
		URL:         BuildAssetURL(storageKey),
		ContentType: contentType,
		SizeBytes:   size,
		Sha256:      hex.EncodeToString(hasher.Sum(nil)),
		Usage:       usage,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (p PhotoIntake) internal(err error) error {
	if p.Log != nil {
		p.Log.Error("photo intake failed", zap.Error(err))
	}
	return ErrInternal()
}

func BuildAssetURL(storageKey string) string {
	return "/media/photos/" + storageKey
}
