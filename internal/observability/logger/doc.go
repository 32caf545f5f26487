// Package logger provee un logger Zap singleton con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: el middleware HTTP inyecta un logger con campos del
//     request (request_id, method, path); From(ctx) lo recupera en
//     cualquier capa sin plumbing manual.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//
// Inicialización (una vez, en el comando serve):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// En handlers/services:
//
//	log := logger.From(ctx)
//	log.Info("event created", logger.EventID(ev.ID), logger.AdminID(who.ID))
package logger
