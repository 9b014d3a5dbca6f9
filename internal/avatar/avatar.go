// Package avatar renders identicon pictures for users and stores them as PNG
// files under an upload directory served at /images/.
package avatar

import (
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// ImagesPath is the URL prefix under which stored pictures are served.
const ImagesPath = "/images/"

const (
	gridSize = 5
	cellSize = 40
	margin   = 25
)

type Config struct {
	Dir       string
	PublicURL string
}

func ConfigFromEnv() Config {
	return Config{
		Dir:       utilities.GetEnvString("UPLOAD_DIR", "uploads"),
		PublicURL: utilities.GetEnvString("PUBLIC_URL", "http://localhost:8431"),
	}
}

type Store struct {
	dir     string
	baseURL string
	logger  *zap.SugaredLogger
}

// NewStore creates the upload directory if needed.
func NewStore(cfg Config, logger *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.PublicURL, "/") + ImagesPath,
		logger:  logger,
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// Generate renders an identicon for seed, writes it under a random file name
// and returns its public URL.
func (s *Store) Generate(seed string) (string, error) {
	name := uuid.NewString() + ".png"
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}
	if err := png.Encode(f, Identicon(seed)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("encode avatar: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close avatar file: %w", err)
	}
	return s.baseURL + name, nil
}

// Remove deletes the file behind a picture URL produced by Generate.
// URLs that do not belong to this store are ignored and failures are only
// logged.
func (s *Store) Remove(picture string) {
	name, ok := strings.CutPrefix(picture, s.baseURL)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		s.logger.Warnw("remove avatar failed", "file", name, "err", err)
	}
}

// Identicon draws the classic 5x5 horizontally mirrored pattern derived from
// the sha256 of seed.
func Identicon(seed string) *image.RGBA {
	sum := sha256.Sum256([]byte(seed))
	fg := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 0xff}
	bg := color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}

	side := gridSize*cellSize + 2*margin
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	half := (gridSize + 1) / 2
	for row := 0; row < gridSize; row++ {
		for col := 0; col < half; col++ {
			if sum[3+row*half+col]&1 == 0 {
				continue
			}
			for _, c := range []int{col, gridSize - 1 - col} {
				x0, y0 := margin+c*cellSize, margin+row*cellSize
				r := image.Rect(x0, y0, x0+cellSize, y0+cellSize)
				draw.Draw(img, r, &image.Uniform{C: fg}, image.Point{}, draw.Src)
			}
		}
	}
	return img
}
