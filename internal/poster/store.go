// Package poster almacena los afiches de eventos detrás de un contrato
// mínimo: guardar bytes bajo una clave, devolver una URL recuperable,
// borrar por clave. Backends: filesystem local (default) y S3/MinIO.
package poster

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Store es el contrato del storage de afiches.
type Store interface {
	// Save persiste los bytes bajo key y retorna la URL pública.
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete borra por clave; ausencia no es error.
	Delete(ctx context.Context, key string) error
}

// Content types aceptados y su extensión.
var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AllowedContentType valida el tipo detectado del upload.
func AllowedContentType(ct string) bool {
	_, ok := extByContentType[strings.ToLower(ct)]
	return ok
}

// NewKey genera la clave de storage para un afiche: el ID del evento más
// un sufijo aleatorio (así un re-upload no pisa la URL cacheada vieja).
func NewKey(eventID, contentType string) (string, error) {
	ext, ok := extByContentType[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("poster: unsupported content type %q", contentType)
	}
	return fmt.Sprintf("%s-%s%s", eventID, uuid.NewString()[:8], ext), nil
}
