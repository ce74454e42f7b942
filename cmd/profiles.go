package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
	"github.com/nextlevelbuilder/meetwatch/internal/config"
	"github.com/nextlevelbuilder/meetwatch/internal/profiles"
)

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage browser profiles",
	}
	cmd.AddCommand(profilesListCmd())
	cmd.AddCommand(profilesValidateCmd())
	return cmd
}

func profilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles and their login state",
		Run: func(cmd *cobra.Command, args []string) {
			_, registry := loadRegistry()
			names := registry.List()
			if len(names) == 0 {
				fmt.Println("no profiles found")
				return
			}
			for _, name := range names {
				st := registry.Status(name)
				login := "logged out"
				if st.LoggedIn {
					login = "logged in"
				}
				fmt.Printf("  %-20s %s  (%s)\n", st.Name, login, st.Path)
			}
		},
	}
}

func profilesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <profile>",
		Short: "Probe a profile's Google login state in a real browser",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, _ := loadRegistry()
			pool := browser.NewPool(cfg.Browser, cfg.ProfilesRootPath())
			defer pool.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			page, release, err := pool.PageForProfile(ctx, args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not open profile: %s\n", err)
				os.Exit(1)
			}
			defer release()

			ok, reason := profiles.ValidateLogin(ctx, page)
			if ok {
				fmt.Printf("%s: authenticated\n", args[0])
				return
			}
			fmt.Printf("%s: NOT authenticated (%s)\n", args[0], reason)
			os.Exit(1)
		},
	}
}

func loadRegistry() (*config.Config, *profiles.Registry) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %s\n", err)
		os.Exit(1)
	}
	registry, err := profiles.NewRegistry(cfg.ProfilesRootPath(), cfg.Profiles.DefaultName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profiles root error: %s\n", err)
		os.Exit(1)
	}
	return cfg, registry
}
