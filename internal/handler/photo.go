package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/response"
)

// maxImageChars caps the encoded payload at roughly 7.5MB of image data.
const maxImageChars = 10_000_000

// PhotoAnalyzer assesses one equipment photo given as a data URL.
type PhotoAnalyzer interface {
	Analyze(ctx context.Context, imageDataURL string) (string, error)
}

// PhotoArchive stores the decoded photo bytes.
type PhotoArchive interface {
	PutPhoto(ctx context.Context, id string, data []byte, contentType string) (string, error)
}

// PhotoHandler serves photo diagnosis. The analysis is the product;
// archival is best-effort and never fails the request.
type PhotoHandler struct {
	Auth     RoleResolver
	Analyzer PhotoAnalyzer
	Archive  PhotoArchive
	Log      zerolog.Logger
}

type photoRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// Post analyzes one photo (POST /v1/photo-diagnosis).
func (h *PhotoHandler) Post(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return response.Unauthorized(c, "missing or invalid authorization header")
	}
	if _, ok := h.Auth.Resolve(token); !ok {
		return response.Unauthorized(c, "invalid or expired token")
	}

	var req photoRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid image data", err.Error())
	}
	if req.ImageBase64 == "" {
		return response.BadRequest(c, "invalid image data", "imageBase64 is required")
	}
	if len(req.ImageBase64) > maxImageChars {
		return response.Error(c, http.StatusRequestEntityTooLarge, "image too large", "max 7.5MB")
	}
	if !strings.HasPrefix(req.ImageBase64, "data:image/") {
		return response.BadRequest(c, "invalid image format", "expected a data:image/ URL")
	}

	if h.Analyzer == nil {
		return response.BadGateway(c, "photo diagnosis unavailable", "vision gateway not configured")
	}
	analysis, err := h.Analyzer.Analyze(c.Request().Context(), req.ImageBase64)
	if err != nil {
		h.Log.Error().Err(err).Msg("photo analysis failed")
		return response.BadGateway(c, "photo analysis failed", err.Error())
	}

	if h.Archive != nil {
		if contentType, data, ok := decodeDataURL(req.ImageBase64); ok {
			id := uuid.NewString()
			if key, err := h.Archive.PutPhoto(c.Request().Context(), id, data, contentType); err != nil {
				h.Log.Debug().Err(err).Msg("photo archive write failed")
			} else {
				h.Log.Debug().Str("key", key).Msg("photo archived")
			}
		}
	}

	return response.OK(c, map[string]any{"analysis": analysis}, "")
}

// decodeDataURL splits a data:image/...;base64,... URL into its content
// type and raw bytes.
func decodeDataURL(dataURL string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, false
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, false
	}
	return contentType, data, true
}
