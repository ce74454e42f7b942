package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/meetwatch/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "config load error: %s\n", err)
				os.Exit(1)
			}
			masked := cfg.MaskedCopy()
			data, _ := json.MarshalIndent(masked, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Run: func(cmd *cobra.Command, args []string) {
			path := resolveConfigPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(os.Stderr, "%s already exists\n", path)
				os.Exit(1)
			}
			if err := config.Save(path, config.Default()); err != nil {
				fmt.Fprintf(os.Stderr, "config write error: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("wrote %s\n", path)
		},
	}
}
