package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register png decoder
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const mediaPrefix = "/media/"

var errNoPhoto = errors.New("no_photo")

// POST /me/avatar  (multipart form, field name: "file")
func uploadAvatarHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		me := currentUserID(r)

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxAvatarBytes)
		if err := r.ParseMultipartForm(cfg.MaxAvatarBytes); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large_or_missing")
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_file")
			return
		}
		defer f.Close()

		raw, err := io.ReadAll(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read_failed")
			return
		}
		// Sniff MIME from the first bytes
		ctype := http.DetectContentType(raw)
		if ctype != "image/jpeg" && ctype != "image/png" {
			writeError(w, http.StatusBadRequest, "only_jpeg_or_png_allowed")
			return
		}
		img, code := decodeUpload(raw, cfg.AvatarMaxSourcePixels)
		if code != "" {
			writeError(w, http.StatusBadRequest, code)
			return
		}

		if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
			logger.Error("creating media dir", zap.String("dir", cfg.MediaDir), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "mkdir_failed")
			return
		}

		filename := uuid.NewString() + ".jpg"
		if err := saveResizedJPEG(img, filepath.Join(cfg.MediaDir, filename), cfg.AvatarMaxPixels, cfg.AvatarJPEGQuality); err != nil {
			logger.Error("saving avatar", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "save_failed")
			return
		}

		previous, _ := getProfilePhoto(r.Context(), db, me)
		photo := mediaPrefix + filename
		res, err := db.ExecContext(r.Context(),
			`UPDATE profiles SET profile_photo = $1, updated_at = NOW() WHERE user_id = $2`, photo, me)
		if err != nil {
			_ = os.Remove(filepath.Join(cfg.MediaDir, filename))
			logDBError("avatar update", err)
			writeError(w, http.StatusInternalServerError, "db_update_failed")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			_ = os.Remove(filepath.Join(cfg.MediaDir, filename))
			writeError(w, http.StatusConflict, "profile_not_initialized")
			return
		}
		if previous != "" {
			removeMediaFile(previous)
		}

		writeJSON(w, http.StatusOK, map[string]string{"profile_photo": photo})
	})
}

// decodeUpload reads the header first so oversized images are refused before
// any pixel buffer is allocated. It returns an error code on failure.
func decodeUpload(raw []byte, maxPixels int) (image.Image, string) {
	conf, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "invalid_image"
	}
	if conf.Width <= 0 || conf.Height <= 0 {
		return nil, "invalid_image"
	}
	if int64(conf.Width)*int64(conf.Height) > int64(maxPixels) {
		return nil, "image_too_large"
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "invalid_image"
	}
	return img, ""
}

// DELETE /me/avatar
func removeAvatarHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if err := removeAvatar(r.Context(), db, currentUserID(r)); err != nil {
			logger.Error("removing avatar", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "remove_failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"profile_photo": ""})
	})
}

// GET /media/{file}
// Photos are public by file name; names are random uuids.
func mediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "file")
		if !validMediaName(name) {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(cfg.MediaDir, name)
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, path)
	}
}

// validMediaName accepts only "<uuid>.jpg".
func validMediaName(name string) bool {
	base, ok := strings.CutSuffix(name, ".jpg")
	if !ok {
		return false
	}
	_, err := uuid.Parse(base)
	return err == nil && filepath.Base(name) == name
}

// saveResizedJPEG scales img to fit within maxSide x maxSide and writes it as JPEG.
func saveResizedJPEG(img image.Image, savePath string, maxSide, quality int) error {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxSide)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	tmp := savePath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, savePath)
}

// fitWithin keeps the aspect ratio and never upscales.
func fitWithin(w, h, maxSide int) (int, int) {
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		nh := h * maxSide / w
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh
	}
	nw := w * maxSide / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide
}

func getProfilePhoto(ctx context.Context, db *sql.DB, userID int) (string, error) {
	var fn sql.NullString
	err := db.QueryRowContext(ctx, `SELECT profile_photo FROM profiles WHERE user_id = $1`, userID).Scan(&fn)
	if err != nil {
		return "", err
	}
	if !fn.Valid || strings.TrimSpace(fn.String) == "" {
		return "", errNoPhoto
	}
	return fn.String, nil
}

func removeAvatar(ctx context.Context, db *sql.DB, userID int) error {
	photo, err := getProfilePhoto(ctx, db, userID)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, errNoPhoto) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading current photo: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE profiles SET profile_photo = NULL, updated_at = NOW() WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("error clearing photo path in DB: %w", err)
	}
	removeMediaFile(photo)
	return nil
}

// removeMediaFile deletes a stored photo by its public path. Only the base name
// is used so a stored value can never point outside MediaDir.
func removeMediaFile(photo string) {
	name := filepath.Base(strings.TrimPrefix(photo, mediaPrefix))
	if !validMediaName(name) {
		return
	}
	if err := os.Remove(filepath.Join(cfg.MediaDir, name)); err != nil && !os.IsNotExist(err) {
		logger.Warn("removing media file", zap.String("file", name), zap.Error(err))
	}
}
