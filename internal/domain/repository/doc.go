// Package repository define las entidades persistidas y las interfaces de
// acceso a datos. Hay dos implementaciones: internal/store/pg (pgx) para
// producción e internal/store/memory para tests y modo dev sin DB.
package repository
