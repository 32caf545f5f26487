package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/cartelera/internal/auth"
	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/config"
	"github.com/dropDatabas3/cartelera/internal/jwt"
	"github.com/dropDatabas3/cartelera/internal/observability/logger"
	"github.com/dropDatabas3/cartelera/internal/security/password"
)

func newSeedCmd() *cobra.Command {
	var email, pass string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea una cuenta admin (idempotente si el email ya existe)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || pass == "" {
				return fmt.Errorf("--email y --password son requeridos")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "cartelera-seed"})

			ctx := cmd.Context()
			reps, err := buildRepos(ctx, cfg)
			if err != nil {
				return err
			}
			if reps.pool != nil {
				defer reps.pool.Close()
			}

			issuer, err := jwt.NewIssuer(cfg.JWT.Issuer, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL())
			if err != nil {
				return err
			}
			svc := auth.New(auth.Deps{
				Admins: reps.admins,
				Tokens: reps.tokens,
				Issuer: issuer,
				Policy: password.Policy{
					MinLength:     cfg.Security.PasswordPolicy.MinLength,
					RequireUpper:  cfg.Security.PasswordPolicy.RequireUpper,
					RequireLower:  cfg.Security.PasswordPolicy.RequireLower,
					RequireDigit:  cfg.Security.PasswordPolicy.RequireDigit,
					RequireSymbol: cfg.Security.PasswordPolicy.RequireSymbol,
				},
			})

			sess, err := svc.Register(ctx, email, pass)
			if errors.Is(err, domain.ErrConflict) {
				fmt.Printf("el email %s ya está registrado, nada que hacer\n", email)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("admin creado: id=%s email=%s\n", sess.Admin.ID, sess.Admin.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email de la cuenta admin")
	cmd.Flags().StringVar(&pass, "password", "", "password (debe cumplir la política)")
	return cmd
}
