// Package migrations embebe los archivos SQL para que el binario pueda
// migrar sin acceso al árbol de fuentes.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
