// Package cache abstrae el caching de lecturas calientes (la galería
// pública). Backends: memoria (go-cache, default) y Redis.
//
// Importante: acá NUNCA se cachean identidades ni tokens — la validación
// de sesión consulta el store en cada request para que una revocación sea
// visible de inmediato.
package cache

import "time"

// Cache define las operaciones mínimas que usa el service de eventos.
type Cache interface {
	Get(k string) ([]byte, bool)
	Set(k string, v []byte, ttl time.Duration)
	Delete(k string)
}

// Nop es el backend "off": nunca acierta.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)             { return nil, false }
func (Nop) Set(string, []byte, time.Duration)     {}
func (Nop) Delete(string)                         {}
