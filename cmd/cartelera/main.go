// cartelera es el binario único del servicio: servidor HTTP, migraciones
// y seed de la primera cuenta admin.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	// .env es opcional; en contenedores todo viene por env real
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "cartelera",
		Short: "Cartelera de eventos: API de administración y galería pública",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.example.yaml", "path del YAML de configuración")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
