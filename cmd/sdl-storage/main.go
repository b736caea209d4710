// ABOUTME: Entry point for the sdl-storage command line tool
// ABOUTME: Inspects and maintains the policy, resumption and capability stores

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/sdl-storage/internal/capabilities"
	"github.com/2389/sdl-storage/internal/config"
	"github.com/2389/sdl-storage/internal/dbms"
	"github.com/2389/sdl-storage/internal/resumption"
)

// version is set by goreleaser at build time.
var version = "dev"

const banner = `
         _ _           _
 ___  __| | |      ___| |_ ___  _ __ __ _  __ _  ___
/ __|/ _' | |_____/ __| __/ _ \| '__/ _' |/ _' |/ _ \
\__ \ (_| | |_____\__ \ || (_) | | | (_| | (_| |  __/
|___/\__,_|_|     |___/\__\___/|_|  \__,_|\__, |\___|
                                          |___/
`

// getConfigPath returns the path to the config file and whether it was asked
// for explicitly.
// Priority: --config flag > SDL_STORAGE_CONFIG env var > XDG_CONFIG_HOME/sdl/storage.yaml > ~/.config/sdl/storage.yaml
func getConfigPath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if envPath := os.Getenv("SDL_STORAGE_CONFIG"); envPath != "" {
		return envPath, true
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "storage.yaml", false // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sdl", "storage.yaml"), false
}

// splitConfigFlag removes "--config PATH" / "--config=PATH" (or -config)
// from args and returns the path and the remaining args.
func splitConfigFlag(args []string) (string, []string, error) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-config":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s requires a path", arg)
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-config="):
			path = strings.TrimPrefix(arg, "-config=")
		default:
			rest = append(rest, arg)
		}
	}
	return path, rest, nil
}

// loadConfig reads the config file. A missing default file means defaults;
// a missing explicit file is an error.
func loadConfig(flagPath string) (*config.Config, string, error) {
	path, explicit := getConfigPath(flagPath)
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "(defaults)", nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func main() {
	configFlag, args, err := splitConfigFlag(os.Args[1:])
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	args = args[1:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	cfg, configPath, err := loadConfig(configFlag)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.Logging)

	switch cmd {
	case "info":
		err = cmdInfo(cfg, configPath)
	case "exec":
		err = cmdExec(cfg, args)
	case "query":
		err = cmdQuery(cfg, args)
	case "backup":
		err = cmdBackup(cfg)
	case "apps":
		err = cmdApps(cfg)
	case "suspend":
		err = cmdSuspend(cfg)
	case "caps":
		err = cmdCaps(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: sdl-storage [--config PATH] <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  info                    Show backend, store location and status")
	fmt.Println("  exec <sql>              Run a statement that returns no rows")
	fmt.Println("  query <sql> [args...]   Run a query and print the rows")
	fmt.Println("  backup                  Take a backend snapshot of the store")
	fmt.Println("  apps                    List saved resumption data")
	fmt.Println("  suspend                 Record an ignition off and drop outdated apps")
	fmt.Println("  caps                    List cached HMI capability interfaces")
	fmt.Println("  caps put <name> <file>  Store display capabilities from a JSON file")
	fmt.Println("  caps show <name>        Print a converted capability summary")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SDL_STORAGE_CONFIG      Config file path (YAML, or TOML with a .toml suffix)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  sdl-storage info")
	fmt.Println("  sdl-storage query 'SELECT app_id, hmi_level FROM application WHERE ign_off_count > ?' 1")
	fmt.Println("  sdl-storage --config /etc/sdl/storage.toml backup")
	fmt.Println()
}

// openDatabase opens the store described by cfg. Parent directories are
// created for file-backed stores.
func openDatabase(cfg *config.Config) (*dbms.Database, error) {
	backend, err := dbms.Lookup(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}

	name := cfg.Storage.StoreName()
	var db *dbms.Database
	if name == "" {
		db = dbms.NewInMemory(backend)
	} else {
		db = dbms.New(backend, name)
		if cfg.Storage.Path != "" {
			if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
				return nil, fmt.Errorf("creating storage directory: %w", err)
			}
		}
	}
	db.SetPath(cfg.Storage.Path)

	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("opening %s: %w", db.Location(), err)
	}
	return db, nil
}

func cmdInfo(cfg *config.Config, configPath string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)

	color.New(color.FgCyan).Print(banner)
	gray.Printf("    version: %s\n\n", version)

	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Backend:    %s\n", db.Backend().Name())
	green.Print("    ▶ ")
	fmt.Printf("Location:   %s\n", displayLocation(db.Location()))
	green.Print("    ▶ ")
	fmt.Printf("Writable:   ")
	if db.IsReadWrite() {
		fmt.Println("yes")
	} else {
		yellow.Println("no")
	}
	green.Print("    ▶ ")
	fmt.Printf("Backends:   %s\n", strings.Join(dbms.Backends(), ", "))
	fmt.Println()
	return nil
}

func displayLocation(location string) string {
	if location == "" {
		return "(temporary)"
	}
	return location
}

func cmdExec(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sdl-storage exec <sql>")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	q := dbms.NewQuery(db)
	defer q.Finalize()

	if err := q.ExecDirect(args[0]); err != nil {
		return err
	}
	color.Green("ok")
	return nil
}

func cmdQuery(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sdl-storage query <sql> [args...]")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	q := dbms.NewQuery(db)
	defer q.Finalize()

	if err := q.Prepare(args[0]); err != nil {
		return err
	}
	for i, arg := range args[1:] {
		if err := q.BindString(i, arg); err != nil {
			return err
		}
	}
	if err := q.Exec(); err != nil {
		return err
	}

	columns := q.Columns()
	if len(columns) == 0 {
		color.Green("ok")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(columns, "\t")))

	rows := 0
	cells := make([]string, len(columns))
	for q.Next() {
		for i := range columns {
			if q.IsNull(i) {
				cells[i] = "NULL"
			} else {
				cells[i] = q.Text(i)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
		rows++
	}
	w.Flush()
	if err := q.Err(); err != nil {
		return err
	}

	color.New(color.FgHiBlack).Printf("(%d rows)\n", rows)
	return nil
}

func cmdBackup(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Backup(); err != nil {
		return err
	}
	color.Green("backup of %s complete", displayLocation(db.Location()))
	return nil
}

func cmdApps(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := resumption.New(db, cfg.Resumption.ApplicationLifes)
	if err != nil {
		return err
	}

	apps, err := store.List()
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Saved Applications")
	cyan.Println("  ------------------")

	if len(apps) == 0 {
		fmt.Println("  (no applications)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  APP\tDEVICE\tHASH\tHMI LEVEL\tIGN OFF\tMEDIA\tSAVED")
	fmt.Fprintln(w, "  ---\t------\t----\t---------\t-------\t-----\t-----")
	for _, app := range apps {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d/%d\t%t\t%s\n",
			app.AppID, app.DeviceID, truncate(app.HashID, 12), app.HMILevel,
			app.IgnOffCount, cfg.Resumption.ApplicationLifes, app.IsMedia,
			app.TimeStamp.Format("Jan 02 15:04"))
	}
	w.Flush()

	ignOff, err := store.IgnOffTime()
	if err != nil {
		return err
	}
	if !ignOff.IsZero() {
		fmt.Println()
		color.New(color.FgHiBlack).Printf("  last ignition off: %s\n", ignOff.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func cmdSuspend(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := resumption.New(db, cfg.Resumption.ApplicationLifes)
	if err != nil {
		return err
	}

	dropped, err := store.OnSuspend()
	if err != nil {
		return err
	}
	color.Green("ignition off recorded, %d application(s) dropped", dropped)
	return nil
}

func cmdCaps(cfg *config.Config, args []string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, err := capabilities.NewCache(db, cfg.Capabilities.CacheTTL, cfg.Capabilities.CacheSize)
	if err != nil {
		return err
	}
	defer cache.Close()

	if len(args) == 0 || args[0] == "list" {
		names, err := cache.Interfaces()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("(no capabilities)")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	switch args[0] {
	case "put":
		if len(args) != 3 {
			return fmt.Errorf("usage: sdl-storage caps put <name> <file>")
		}
		raw, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[2], err)
		}
		if err := cache.Put(args[1], raw); err != nil {
			return err
		}
		color.Green("stored capabilities for %s", args[1])
		return nil

	case "show":
		if len(args) != 2 {
			return fmt.Errorf("usage: sdl-storage caps show <name>")
		}
		doc, err := cache.Get(args[1])
		if err != nil {
			return err
		}
		printCapabilities(doc)
		return nil

	default:
		return fmt.Errorf("unknown caps command: %s", args[0])
	}
}

// printCapabilities prints the enum values of every window capability.
func printCapabilities(doc capabilities.Document) {
	yellow := color.New(color.FgYellow)

	windows, _ := doc["windowCapabilities"].([]any)
	if len(windows) == 0 {
		fmt.Println("(no window capabilities)")
		return
	}

	for i, w := range windows {
		window, _ := w.(map[string]any)
		yellow.Printf("Window %d\n", i)
		for _, key := range []string{"textFields", "imageFields", "buttonCapabilities"} {
			items, _ := window[key].([]any)
			names := make([]string, 0, len(items))
			for _, item := range items {
				if obj, ok := item.(map[string]any); ok {
					names = append(names, fmt.Sprint(obj["name"]))
				}
			}
			fmt.Printf("  %-20s %s\n", key+":", strings.Join(names, ", "))
		}
		if types, ok := window["imageTypeSupported"].([]any); ok {
			fmt.Printf("  %-20s %v\n", "imageTypeSupported:", types)
		}
	}
}

// truncate shortens a string to maxLen, adding ellipsis if needed
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
