package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"photo-catalog/internal/decode"
	"photo-catalog/internal/library"
)

// Default cache directory path
const defaultCacheDir = "/cache"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}
	registryPath := filepath.Join(cacheDir, "libraries.json")

	registry, err := library.NewRegistry(registryPath, cacheDir, decode.New(), 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load library registry: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure CACHE_DIR is set correctly (current: %s)\n", cacheDir)
		os.Exit(1)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close registry: %v\n", err)
		}
	}()

	switch command {
	case "status":
		showStatus(registry)
	case "sync":
		if !syncLibraries(registry) {
			os.Exit(1)
		}
	case "empty-caches":
		if !emptyCaches(registry) {
			os.Exit(1)
		}
	default:
		// Sanitize command input using allowlist to break taint chain
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for
// display. Any character that is not alphanumeric, a hyphen, or an
// underscore is replaced with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Photo Catalog Maintenance")
	fmt.Println("")
	fmt.Println("Usage: catalogctl <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  status        - List registered libraries and image counts")
	fmt.Println("  sync          - Persist catalogs and the registry file")
	fmt.Println("  empty-caches  - Delete cached proxies and EXIF data")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  CACHE_DIR - Path to cache directory (default: %s)\n", defaultCacheDir)
}

func showStatus(registry *library.Registry) {
	libs := registry.All()
	if len(libs) == 0 {
		fmt.Println("No libraries registered.")
		return
	}
	for _, lib := range libs {
		count := 0
		for range lib.Images("", true) {
			count++
		}
		transient := ""
		if lib.Transient() {
			transient = " (transient)"
		}
		fmt.Printf("  [%d] %s%s\n", lib.ID(), lib.Name(), transient)
		fmt.Printf("      Path:   %s\n", lib.Path())
		fmt.Printf("      Images: %d\n", count)
	}
}

func syncLibraries(registry *library.Registry) bool {
	ok := true
	for _, lib := range registry.All() {
		if err := lib.Synchronize(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to sync %s: %v\n", lib.Name(), err)
			ok = false
		}
	}
	if err := registry.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to save registry: %v\n", err)
		ok = false
	}
	if ok {
		fmt.Println("Libraries synchronized.")
	}
	return ok
}

func emptyCaches(registry *library.Registry) bool {
	ok := true
	for _, lib := range registry.All() {
		if err := lib.EmptyCaches(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to empty caches for %s: %v\n", lib.Name(), err)
			ok = false
		}
	}
	if ok {
		fmt.Println("Caches emptied. Proxies are rebuilt on the next prefetch.")
	}
	return ok
}
