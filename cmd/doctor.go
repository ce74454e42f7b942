package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/meetwatch/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("meetwatch doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, defaults apply)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Browser:")
	bin := cfg.Browser.BinPath
	if bin == "" {
		for _, candidate := range []string{"google-chrome", "chromium", "chromium-browser"} {
			if path, err := exec.LookPath(candidate); err == nil {
				bin = path
				break
			}
		}
	}
	if bin == "" {
		fmt.Println("    Chrome:   NOT FOUND (set browser.bin_path)")
	} else {
		fmt.Printf("    Chrome:   %s\n", bin)
	}
	fmt.Printf("    Headless: %v\n", cfg.Browser.Headless)

	fmt.Println()
	fmt.Println("  Storage:")
	dataDir := cfg.DataDirPath()
	fmt.Printf("    Data dir: %s", dataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Printf(" (NOT WRITABLE: %s)\n", err)
	} else {
		fmt.Println(" (OK)")
	}
	if cfg.Storage.RemoteEventURL != "" {
		fmt.Printf("    Remote events: %s\n", cfg.Storage.RemoteEventURL)
	}
	if cfg.Storage.RemoteBlobURL != "" {
		fmt.Printf("    Remote blobs:  %s\n", cfg.Storage.RemoteBlobURL)
	}

	fmt.Println()
	fmt.Println("  Profiles:")
	fmt.Printf("    Root:     %s\n", cfg.ProfilesRootPath())
	entries, err := os.ReadDir(cfg.ProfilesRootPath())
	if err != nil {
		fmt.Printf("    (unreadable: %s)\n", err)
	} else {
		fmt.Printf("    Found:    %d entries\n", len(entries))
	}

	fmt.Println()
	fmt.Println("  Sessions:")
	fmt.Printf("    Max concurrent: %d\n", cfg.Sessions.MaxConcurrent)
	fmt.Printf("    Chunk interval: %ds\n", cfg.Audio.ChunkIntervalSeconds)
	if cfg.Diarization.EndpointURL != "" {
		fmt.Printf("    Diarization:    %s\n", cfg.Diarization.EndpointURL)
	} else {
		fmt.Println("    Diarization:    fallback only")
	}
}
