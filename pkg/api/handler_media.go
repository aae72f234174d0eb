package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/models"
	"github.com/firstround/interviewd/pkg/token"
)

// uploadHandler handles POST /media/upload under a one-shot UPT. The token's
// jti is consumed before any bytes land so a replayed token can never store a
// second blob.
func (s *Server) uploadHandler(c *echo.Context) error {
	claims := tokenClaims(c)
	ctx := c.Request().Context()

	sess, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		return err
	}
	if sess.State.Terminal() {
		return newAPIError(http.StatusConflict, "invalid_state", "session is sealed")
	}
	if claims.Generation != sess.TokenGeneration {
		return token.ErrWrongGen
	}

	if err := s.store.ConsumeUploadToken(ctx, claims.JTI); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return newAPIError(http.StatusBadRequest, "validation_failed", "multipart field 'file' is required")
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	blob, err := s.blobs.Save(ctx, sess.ID, src)
	if err != nil {
		return err
	}
	upload := models.Upload{
		Ref:       blob.Ref,
		SessionID: sess.ID,
		Filename:  fh.Filename,
		Size:      blob.Size,
		Checksum:  blob.Checksum,
	}
	if err := s.store.SaveUpload(ctx, &upload); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &UploadResponse{Ref: blob.Ref})
}
