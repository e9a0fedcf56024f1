package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/brew"
	"github.com/blackwell-systems/caskctl/internal/cache"
	"github.com/blackwell-systems/caskctl/internal/execx"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the caskctl setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		problems := 0

		if version, err := e.manager.Version(ctx); err != nil {
			problems++
			fmt.Printf("✗ package manager: %v\n", err)
		} else {
			fmt.Printf("✓ package manager: %s\n", firstLine(version))
		}

		if brew.HasCommandLineTools(ctx, e.runner) {
			fmt.Println("✓ Xcode command line tools installed")
		} else {
			problems++
			fmt.Println("✗ Xcode command line tools missing (run: xcode-select --install)")
		}

		if e.cfg.AskpassPath != "" {
			if err := execx.VerifyHelper(e.cfg.AskpassPath, e.cfg.AskpassSHA256); err != nil {
				problems++
				fmt.Printf("✗ askpass helper: %v\n", err)
			} else {
				fmt.Printf("✓ askpass helper verified: %s\n", e.cfg.AskpassPath)
			}
		}

		if dir, err := cacheDirFor(e); err != nil {
			problems++
			fmt.Printf("✗ cache directory: %v\n", err)
		} else {
			fmt.Printf("✓ cache directory writable: %s\n", dir)
		}

		if e.history != nil {
			fmt.Println("✓ history database open")
		} else {
			fmt.Println("• history database unavailable (operations will not be recorded)")
		}

		if problems > 0 {
			return fmt.Errorf("%d problem(s) found", problems)
		}
		fmt.Println("\nEverything looks good.")
		return nil
	},
}

// cacheDirFor verifies the cache directory exists (creating it if needed)
// and is writable.
func cacheDirFor(e *env) (string, error) {
	dir := e.cfg.CacheDir
	if dir == "" {
		var err error
		dir, err = cache.DefaultDir()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	probe, err := os.CreateTemp(dir, "doctor-*")
	if err != nil {
		return "", err
	}
	probe.Close()
	os.Remove(probe.Name())
	return dir, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
